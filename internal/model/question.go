package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AnswerKey is the canonical answer of a true/false question
type AnswerKey string

const (
	AnswerTrue     AnswerKey = "TRUE"
	AnswerFalse    AnswerKey = "FALSE"
	AnswerExcluded AnswerKey = "EXCLUDED"
)

// Valid reports whether the key is one of the three canonical values
func (a AnswerKey) Valid() bool {
	switch a {
	case AnswerTrue, AnswerFalse, AnswerExcluded:
		return true
	}
	return false
}

// Status is a degradation tag attached to a record
type Status string

const (
	StatusNotSeparable      Status = "not_separable"      // No trigger and no usable paragraph split
	StatusMissingIssuer     Status = "missing_issuer"     // Lookahead found no issuer line
	StatusPendingEnrichment Status = "pending_enrichment" // PDF record without a web counterpart
	StatusUncapturable      Status = "uncapturable"       // Web fragment had no content container
)

// Provenance records which extraction path produced a record
type Provenance string

const (
	ProvenancePDF    Provenance = "pdf"
	ProvenanceWeb    Provenance = "web"
	ProvenanceMerged Provenance = "merged"
)

// ExclusionReason explains why a record was routed to the excluded partition
type ExclusionReason string

const (
	ExcludedAnnulled       ExclusionReason = "annulled"
	ExcludedMultipleChoice ExclusionReason = "multiple_choice"
	ExcludedMissing        ExclusionReason = "missing"
	ExcludedUnknown        ExclusionReason = "unknown"
)

// QuestionRecord is one exam item: metadata, split body and answer key.
// It serializes as a flat object so a run can be written as a JSON array.
type QuestionRecord struct {
	ExternalID     string          `json:"external_id"`               // Numeric identifier from the question URL
	SequenceNumber int             `json:"sequence_number"`           // Ordinal inside the source document
	OriginLink     string          `json:"origin_link"`               // Canonical URL derived from the identifier
	BankOrAgency   string          `json:"bank_or_agency"`            // Issuer line as printed
	Subject        string          `json:"subject"`                   // Subject (matéria)
	Topic          string          `json:"topic"`                     // Topic (assunto)
	Context        string          `json:"context"`                   // Supporting text, may be HTML on the web path
	Assertion      string          `json:"assertion"`                 // Statement to judge
	AnswerKey      AnswerKey       `json:"answer_key"`                // TRUE, FALSE or EXCLUDED
	RawAnswerKey   string          `json:"raw_answer_key,omitempty"`  // Token as found in the source
	HasImage       bool            `json:"has_image"`                 // Content carries at least one non-decorative image
	MaybeImage     bool            `json:"maybe_image,omitempty"`     // Text names a picture the PDF path cannot see
	ImageURL       string          `json:"image_url"`                 // First image source, absolute
	HasMath        bool            `json:"has_math"`                  // Content carries a math expression
	Trigger        string          `json:"trigger,omitempty"`         // Trigger that split context from assertion
	Status         []Status        `json:"status,omitempty"`          // Degradation tags
	Provenance     Provenance      `json:"provenance"`                // pdf, web or merged
	ExcludedReason ExclusionReason `json:"excluded_reason,omitempty"` // Set only for excluded records
	SourceDocument string          `json:"source_document,omitempty"` // Input the record came from
}

// Tag adds a status tag if not already present. Records are passed by
// value, so the tag list is copied rather than appended in place.
func (r *QuestionRecord) Tag(s Status) {
	if r.HasStatus(s) {
		return
	}
	out := make([]Status, len(r.Status), len(r.Status)+1)
	copy(out, r.Status)
	r.Status = append(out, s)
}

// Untag removes a status tag
func (r *QuestionRecord) Untag(s Status) {
	var out []Status
	for _, existing := range r.Status {
		if existing != s {
			out = append(out, existing)
		}
	}
	r.Status = out
}

// HasStatus reports whether the record carries the given tag
func (r *QuestionRecord) HasStatus(s Status) bool {
	for _, existing := range r.Status {
		if existing == s {
			return true
		}
	}
	return false
}

// Degraded reports whether the record carries any degradation tag
func (r *QuestionRecord) Degraded() bool {
	return len(r.Status) > 0
}

// NumericID returns the identifier as an integer, or false if it is not numeric
func (r *QuestionRecord) NumericID() (uint64, bool) {
	n, err := strconv.ParseUint(r.ExternalID, 10, 64)
	return n, err == nil
}

// DefaultOriginTemplate builds the canonical question URL from an identifier
const DefaultOriginTemplate = "https://www.tecconcursos.com.br/questoes/%s"

// OriginLink derives the canonical link for an identifier
func OriginLink(template, id string) string {
	if template == "" {
		template = DefaultOriginTemplate
	}
	if !strings.Contains(template, "%s") {
		return strings.TrimRight(template, "/") + "/" + id
	}
	return fmt.Sprintf(template, id)
}

// Document is one input document of a run
type Document struct {
	Index   int    // Position in the run, used to keep scan order across workers
	Path    string // File path, or "-" for stdin
	Subject string // Subject override, empty to infer from the name
}
