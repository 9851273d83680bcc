package model

import "time"

// RunReport is the complete output of a run
type RunReport struct {
	RunID       string           `json:"run_id"`                 // Random identifier of the run
	GeneratedAt time.Time        `json:"generated_at"`           // When the run finished
	Documents   []string         `json:"documents"`              // Inputs of the PDF path
	FragmentDir string           `json:"fragment_dir,omitempty"` // Input of the web path
	Accepted    []QuestionRecord `json:"accepted"`               // Records with a TRUE/FALSE key
	Excluded    []QuestionRecord `json:"excluded"`               // Records routed out of the training set
	Orphans     []string         `json:"orphans,omitempty"`      // Web identifiers with no PDF counterpart
	Summary     Summary          `json:"summary"`                // Counts and diagnostic signals
}

// Summary aggregates the counts of a run
type Summary struct {
	Total         int                     `json:"total"`
	Accepted      int                     `json:"accepted"`
	Excluded      int                     `json:"excluded"`
	Degraded      int                     `json:"degraded"`
	Orphans       int                     `json:"orphans"`
	SkippedInputs int                     `json:"skipped_inputs"`
	ByStatus      map[Status]int          `json:"by_status,omitempty"`
	ByExclusion   map[ExclusionReason]int `json:"by_exclusion,omitempty"`
	ByAnswer      map[AnswerKey]int       `json:"by_answer,omitempty"`
	Subjects      []SubjectCount          `json:"subjects,omitempty"`
	Signals       []Signal                `json:"signals,omitempty"`
}

// SubjectCount counts records per subject and topic
type SubjectCount struct {
	Subject string         `json:"subject"`
	Total   int            `json:"total"`
	Topics  map[string]int `json:"topics,omitempty"`
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs used to raise the signal
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalSeparation   SignalType = "separation"     // Share of records without a context/assertion split
	SignalIssuer       SignalType = "issuer"         // Share of records without an issuer line
	SignalEnrichment   SignalType = "enrichment"     // Share of PDF records with no web counterpart
	SignalOrphans      SignalType = "orphans"        // Web fragments with no PDF counterpart
	SignalExclusion    SignalType = "exclusion"      // Share of records excluded from the training set
	SignalBalance      SignalType = "answer_balance" // TRUE/FALSE ratio
	SignalUncapturable SignalType = "uncapturable"   // Fragments without a content container
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
