package validate

import (
	"github.com/ppiankov/qbank/internal/model"
)

// Partition is the output of the validity filter
type Partition struct {
	Accepted []model.QuestionRecord
	Excluded []model.QuestionRecord
}

// Filter routes records into the accepted and excluded partitions by answer key
type Filter struct {
	normalizer *Normalizer
}

// NewFilter creates a validity filter over the given normalizer
func NewFilter(n *Normalizer) *Filter {
	return &Filter{normalizer: n}
}

// Apply normalizes each record's raw answer key and partitions the records.
// Records whose key is TRUE or FALSE are accepted; every other record is
// excluded with its reason set. Input order is kept in both partitions.
func (f *Filter) Apply(records []model.QuestionRecord) Partition {
	var p Partition
	for _, r := range records {
		key, reason := f.normalizer.Normalize(r.RawAnswerKey)
		r.AnswerKey = key
		r.ExcludedReason = reason

		if key == model.AnswerTrue || key == model.AnswerFalse {
			p.Accepted = append(p.Accepted, r)
		} else {
			p.Excluded = append(p.Excluded, r)
		}
	}
	return p
}
