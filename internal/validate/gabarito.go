package validate

import (
	"strings"

	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/util"
)

// Normalizer maps raw answer-key tokens onto the canonical TRUE/FALSE/EXCLUDED
// vocabulary through a configurable alias table.
type Normalizer struct {
	aliases        map[string]model.AnswerKey
	annulled       map[string]bool
	multipleChoice bool
}

// NewNormalizer builds a normalizer from the alias table
func NewNormalizer(cfg model.AnswerKeyConfig) *Normalizer {
	n := &Normalizer{
		aliases:        make(map[string]model.AnswerKey),
		annulled:       make(map[string]bool),
		multipleChoice: cfg.MultipleChoiceLetters,
	}
	for _, a := range cfg.True {
		n.aliases[foldToken(a)] = model.AnswerTrue
	}
	for _, a := range cfg.False {
		n.aliases[foldToken(a)] = model.AnswerFalse
	}
	for _, a := range cfg.Annulled {
		n.annulled[foldToken(a)] = true
	}
	return n
}

// Normalize maps a raw token to a canonical key. Tokens outside the TRUE and
// FALSE alias sets yield EXCLUDED with the reason for exclusion.
func (n *Normalizer) Normalize(raw string) (model.AnswerKey, model.ExclusionReason) {
	token := foldToken(raw)
	if token == "" {
		return model.AnswerExcluded, model.ExcludedMissing
	}

	// Letters that are not true/false aliases come from multiple-choice items
	if isChoiceLetter(token) {
		if _, aliased := n.aliases[token]; n.multipleChoice || !aliased {
			return model.AnswerExcluded, model.ExcludedMultipleChoice
		}
	}

	if key, ok := n.aliases[token]; ok {
		return key, ""
	}
	if n.annulled[token] {
		return model.AnswerExcluded, model.ExcludedAnnulled
	}
	return model.AnswerExcluded, model.ExcludedUnknown
}

// foldToken lowercases, strips accents and trailing punctuation
func foldToken(s string) string {
	s = util.Fold(s)
	return strings.Trim(s, " .:;,!()[]\"'")
}

func isChoiceLetter(token string) bool {
	return len(token) == 1 && token[0] >= 'a' && token[0] <= 'e'
}
