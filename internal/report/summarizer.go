package report

import (
	"fmt"
	"sort"

	"github.com/ppiankov/qbank/internal/model"
)

// Input carries everything a run produced before summarization
type Input struct {
	Accepted      []model.QuestionRecord
	Excluded      []model.QuestionRecord
	Orphans       int
	Pending       int
	SkippedInputs int
}

// Summarizer aggregates counts and generates diagnostic signals
type Summarizer struct{}

// NewSummarizer creates a new summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// Summarize counts records by outcome, status, exclusion reason, answer and
// subject, and raises signals for degraded shares of the run
func (s *Summarizer) Summarize(in Input) model.Summary {
	sum := model.Summary{
		Accepted:      len(in.Accepted),
		Excluded:      len(in.Excluded),
		Orphans:       in.Orphans,
		SkippedInputs: in.SkippedInputs,
		ByStatus:      make(map[model.Status]int),
		ByExclusion:   make(map[model.ExclusionReason]int),
		ByAnswer:      make(map[model.AnswerKey]int),
	}
	sum.Total = sum.Accepted + sum.Excluded

	all := make([]model.QuestionRecord, 0, sum.Total)
	all = append(all, in.Accepted...)
	all = append(all, in.Excluded...)

	for i := range all {
		rec := &all[i]
		if rec.Degraded() {
			sum.Degraded++
		}
		for _, st := range rec.Status {
			sum.ByStatus[st]++
		}
		sum.ByAnswer[rec.AnswerKey]++
	}
	for _, rec := range in.Excluded {
		sum.ByExclusion[rec.ExcludedReason]++
	}

	sum.Subjects = s.subjectTree(all)

	// 1. Separation
	sum.Signals = append(sum.Signals, s.ratioSignal(model.SignalSeparation,
		sum.ByStatus[model.StatusNotSeparable], sum.Total, 0.05, 0.20,
		"Records without a context/assertion split"))

	// 2. Issuer coverage
	sum.Signals = append(sum.Signals, s.ratioSignal(model.SignalIssuer,
		sum.ByStatus[model.StatusMissingIssuer], sum.Total, 0.05, 0.25,
		"Records without an issuer line"))

	// 3. Enrichment
	sum.Signals = append(sum.Signals, s.ratioSignal(model.SignalEnrichment,
		in.Pending, sum.Total, 0.10, 0.50,
		"Records with no web counterpart"))

	// 4. Exclusion
	sum.Signals = append(sum.Signals, s.ratioSignal(model.SignalExclusion,
		sum.Excluded, sum.Total, 0.10, 0.30,
		"Records excluded from the training set"))

	// 5. Answer balance
	if balance := s.calculateBalance(sum.ByAnswer); balance.Type != "" {
		sum.Signals = append(sum.Signals, balance)
	}

	// 6. Orphans
	if in.Orphans > 0 {
		sum.Signals = append(sum.Signals, model.Signal{
			Type:        model.SignalOrphans,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d web fragments have no PDF counterpart", in.Orphans),
			Data:        map[string]interface{}{"orphans": in.Orphans},
		})
	}

	// 7. Uncapturable pages
	if n := sum.ByStatus[model.StatusUncapturable]; n > 0 {
		sum.Signals = append(sum.Signals, model.Signal{
			Type:        model.SignalUncapturable,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("%d captured pages had no content container", n),
			Data:        map[string]interface{}{"uncapturable": n},
		})
	}

	return sum
}

// ratioSignal raises a signal whose severity grows with count/total
func (s *Summarizer) ratioSignal(kind model.SignalType, count, total int, warn, critical float64, label string) model.Signal {
	if total == 0 {
		return model.Signal{
			Type:        kind,
			Severity:    model.SeverityInfo,
			Description: "No records",
			Data:        map[string]interface{}{"count": count, "total": 0},
		}
	}

	ratio := float64(count) / float64(total)
	severity := model.SeverityInfo
	if ratio >= critical {
		severity = model.SeverityCritical
	} else if ratio >= warn {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        kind,
		Severity:    severity,
		Description: fmt.Sprintf("%s: %d/%d (%.0f%%)", label, count, total, ratio*100),
		Data: map[string]interface{}{
			"count":    count,
			"total":    total,
			"ratio":    ratio,
			"warning":  warn,
			"critical": critical,
			"formula":  "count / total",
		},
	}
}

// calculateBalance flags a TRUE/FALSE split far from even
func (s *Summarizer) calculateBalance(byAnswer map[model.AnswerKey]int) model.Signal {
	trueCount := byAnswer[model.AnswerTrue]
	falseCount := byAnswer[model.AnswerFalse]
	total := trueCount + falseCount
	if total == 0 {
		return model.Signal{}
	}

	share := float64(trueCount) / float64(total)
	severity := model.SeverityInfo
	if share < 0.2 || share > 0.8 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalBalance,
		Severity:    severity,
		Description: fmt.Sprintf("Answer balance: %d TRUE, %d FALSE", trueCount, falseCount),
		Data: map[string]interface{}{
			"true":       trueCount,
			"false":      falseCount,
			"true_share": share,
		},
	}
}

// subjectTree counts records per subject and topic, largest subjects first
func (s *Summarizer) subjectTree(records []model.QuestionRecord) []model.SubjectCount {
	index := make(map[string]*model.SubjectCount)
	for _, rec := range records {
		subject := rec.Subject
		if subject == "" {
			subject = "(sem matéria)"
		}
		sc, ok := index[subject]
		if !ok {
			sc = &model.SubjectCount{Subject: subject, Topics: make(map[string]int)}
			index[subject] = sc
		}
		sc.Total++
		if rec.Topic != "" {
			sc.Topics[rec.Topic]++
		}
	}

	out := make([]model.SubjectCount, 0, len(index))
	for _, sc := range index {
		if len(sc.Topics) == 0 {
			sc.Topics = nil
		}
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}
