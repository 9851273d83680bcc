package validate

import (
	"testing"

	"github.com/ppiankov/qbank/internal/model"
)

func TestNormalizer_Aliases(t *testing.T) {
	n := NewNormalizer(model.DefaultConfig().AnswerKeys)

	tests := []struct {
		raw    string
		key    model.AnswerKey
		reason model.ExclusionReason
	}{
		{"C", model.AnswerTrue, ""},
		{"Certo", model.AnswerTrue, ""},
		{"certo.", model.AnswerTrue, ""},
		{"V", model.AnswerTrue, ""},
		{"Verdadeiro", model.AnswerTrue, ""},
		{"TRUE", model.AnswerTrue, ""},
		{"E", model.AnswerFalse, ""},
		{"Errado", model.AnswerFalse, ""},
		{"F", model.AnswerFalse, ""},
		{"Falso", model.AnswerFalse, ""},
		{"false", model.AnswerFalse, ""},
		{"Anulada", model.AnswerExcluded, model.ExcludedAnnulled},
		{"ANULADO", model.AnswerExcluded, model.ExcludedAnnulled},
		{"Nula", model.AnswerExcluded, model.ExcludedAnnulled},
		{"A", model.AnswerExcluded, model.ExcludedMultipleChoice},
		{"b", model.AnswerExcluded, model.ExcludedMultipleChoice},
		{"D", model.AnswerExcluded, model.ExcludedMultipleChoice},
		{"", model.AnswerExcluded, model.ExcludedMissing},
		{"   ", model.AnswerExcluded, model.ExcludedMissing},
		{"Talvez", model.AnswerExcluded, model.ExcludedUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			key, reason := n.Normalize(tt.raw)
			if key != tt.key {
				t.Errorf("Expected key %s, got %s", tt.key, key)
			}
			if reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, reason)
			}
		})
	}
}

func TestNormalizer_AliasEquivalence(t *testing.T) {
	n := NewNormalizer(model.DefaultConfig().AnswerKeys)

	groups := map[model.AnswerKey][]string{
		model.AnswerTrue:  {"C", "Certo", "V", "Verdadeiro", "TRUE"},
		model.AnswerFalse: {"E", "Errado", "F", "Falso", "FALSE"},
	}

	for want, aliases := range groups {
		for _, raw := range aliases {
			if got, _ := n.Normalize(raw); got != want {
				t.Errorf("Expected %s for %q, got %s", want, raw, got)
			}
		}
	}
}

func TestNormalizer_MultipleChoiceDocuments(t *testing.T) {
	cfg := model.DefaultConfig().AnswerKeys
	cfg.MultipleChoiceLetters = true
	n := NewNormalizer(cfg)

	for _, raw := range []string{"A", "B", "C", "D", "E"} {
		key, reason := n.Normalize(raw)
		if key != model.AnswerExcluded || reason != model.ExcludedMultipleChoice {
			t.Errorf("Expected %q to be excluded as multiple choice, got %s/%s", raw, key, reason)
		}
	}

	if key, _ := n.Normalize("Certo"); key != model.AnswerTrue {
		t.Errorf("Expected words to keep normalizing, got %s", key)
	}
}

func TestNormalizer_OutputIsCanonical(t *testing.T) {
	n := NewNormalizer(model.DefaultConfig().AnswerKeys)
	for _, raw := range []string{"C", "x", "", "Anulada", "?", "Errado", "ç"} {
		key, _ := n.Normalize(raw)
		if !key.Valid() {
			t.Errorf("Expected canonical key for %q, got %q", raw, key)
		}
	}
}
