package reconcile

import (
	"sort"
	"strings"

	"github.com/ppiankov/qbank/internal/model"
)

// Result is the outcome of merging the PDF and web views of a question set
type Result struct {
	Records []model.QuestionRecord `json:"records"` // One per identifier, ascending
	Orphans []model.QuestionRecord `json:"orphans"` // Web records with no PDF counterpart
	Merged  int                    `json:"merged"`  // Records that received web content
	Pending int                    `json:"pending"` // PDF records with no web counterpart
}

// Reconciler merges PDF-derived records with web-derived enrichments keyed
// by external identifier. PDF records own classification (subject, topic,
// issuer, answer key); web records own content (context, assertion, image,
// math).
type Reconciler struct{}

// NewReconciler creates a reconciler
func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile merges the two record sets. Duplicated identifiers inside a set
// are resolved last-wins before merging. Records whose identifier is not
// numeric sort after numeric ones, lexically.
func (r *Reconciler) Reconcile(pdf, web []model.QuestionRecord) Result {
	pdfByID, pdfOrder := Dedupe(pdf)
	webByID, webOrder := Dedupe(web)

	var res Result
	for _, id := range pdfOrder {
		rec := pdfByID[id]

		enrichment, ok := webByID[id]
		if !ok {
			rec.Tag(model.StatusPendingEnrichment)
			res.Pending++
			res.Records = append(res.Records, rec)
			continue
		}

		merged, applied := overlay(rec, enrichment)
		if applied {
			res.Merged++
		}
		res.Records = append(res.Records, merged)
	}

	for _, id := range webOrder {
		if _, ok := pdfByID[id]; !ok {
			res.Orphans = append(res.Orphans, webByID[id])
		}
	}

	SortByID(res.Records)
	SortByID(res.Orphans)
	return res
}

// overlay lays web content over a PDF record. Image and math flags come from
// any captured web view; text is only taken when the web view was separable.
// An uncapturable web view only tags the record.
func overlay(rec, web model.QuestionRecord) (model.QuestionRecord, bool) {
	if web.HasStatus(model.StatusUncapturable) {
		rec.Tag(model.StatusUncapturable)
		return rec, false
	}

	rec.HasImage = web.HasImage
	rec.ImageURL = web.ImageURL
	rec.HasMath = web.HasMath
	if strings.TrimSpace(web.Assertion) == "" || web.HasStatus(model.StatusNotSeparable) {
		return rec, false
	}

	rec.Context = web.Context
	rec.Assertion = web.Assertion
	rec.Trigger = web.Trigger
	rec.Provenance = model.ProvenanceMerged
	rec.Untag(model.StatusNotSeparable)
	return rec, true
}

// Dedupe indexes records by identifier, later records replacing earlier
// ones. The returned order lists each identifier at its first appearance.
func Dedupe(records []model.QuestionRecord) (map[string]model.QuestionRecord, []string) {
	byID := make(map[string]model.QuestionRecord, len(records))
	order := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.ExternalID == "" {
			continue
		}
		if _, seen := byID[rec.ExternalID]; !seen {
			order = append(order, rec.ExternalID)
		}
		byID[rec.ExternalID] = rec
	}
	return byID, order
}

// SortByID sorts records ascending by numeric identifier
func SortByID(records []model.QuestionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, aok := records[i].NumericID()
		b, bok := records[j].NumericID()
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return records[i].ExternalID < records[j].ExternalID
	})
}
