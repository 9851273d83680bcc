package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/qbank/internal/rules"
	"github.com/ppiankov/qbank/internal/util"
)

// TriggerStructural names the paragraph fallback in split outcomes
const TriggerStructural = "structural"

var (
	leadingOrdinal = regexp.MustCompile(`^\d+\)\s*`)
	leadingPunct   = regexp.MustCompile(`^[.:\-\s]+`)
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)
)

// Split is the outcome of separating a question body into context and assertion
type Split struct {
	Context   string
	Assertion string
	Separable bool   // False when neither a trigger nor the fallback applied
	Trigger   string // Matched trigger name, TriggerStructural, or empty
	Offset    int    // Byte offset of the split in the prepared text, -1 if none
}

// Splitter separates the supporting text of a question from the statement
// to judge, using the trigger cascade of one rule set.
type Splitter struct {
	rules *rules.RuleSet
	echo  *regexp.Regexp
}

// NewSplitter creates a splitter for a rule set. echo, when not nil, matches
// an answer key echoed at the end of the statement.
func NewSplitter(rs *rules.RuleSet, echo *regexp.Regexp) *Splitter {
	return &Splitter{rules: rs, echo: echo}
}

// Split runs the trigger cascade over the whole text and cuts after the
// match that ends last while leaving at least two characters behind.
// Without a match it falls back to the last paragraph.
func (s *Splitter) Split(text string) Split {
	text = strings.TrimSpace(leadingOrdinal.ReplaceAllString(strings.TrimSpace(text), ""))
	if text == "" {
		return Split{Offset: -1}
	}

	best, trigger := -1, ""
	for _, t := range s.rules.Compiled() {
		for _, loc := range t.Re.FindAllStringIndex(text, -1) {
			end := loc[1]
			if end > best && utf8.RuneCountInString(text[end:]) >= 2 {
				best, trigger = end, t.Name
			}
		}
	}

	if best >= 0 {
		if assertion := s.cleanAssertion(text[best:]); assertion != "" {
			return Split{
				Context:   util.CollapseBlankLines(text[:best]),
				Assertion: assertion,
				Separable: true,
				Trigger:   trigger,
				Offset:    best,
			}
		}
	}

	return s.fallback(text)
}

// fallback takes the last paragraph as the assertion when it is short enough
func (s *Splitter) fallback(text string) Split {
	var paras []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}

	if len(paras) >= 2 {
		last := paras[len(paras)-1]
		if utf8.RuneCountInString(last) < s.rules.FallbackMaxLen {
			if assertion := s.cleanAssertion(last); assertion != "" {
				return Split{
					Context:   strings.Join(paras[:len(paras)-1], "\n\n"),
					Assertion: assertion,
					Separable: true,
					Trigger:   TriggerStructural,
					Offset:    strings.LastIndex(text, last),
				}
			}
		}
	}

	return Split{
		Context: util.CollapseBlankLines(text),
		Offset:  -1,
	}
}

// cleanAssertion trims leading punctuation, ordinals and echoed answer
// keys, and folds paragraph breaks into single newlines. An assertion is
// always one paragraph, so splitting it again finds nothing to cut.
func (s *Splitter) cleanAssertion(a string) string {
	for {
		prev := a
		a = strings.TrimSpace(a)
		a = leadingPunct.ReplaceAllString(a, "")
		a = leadingOrdinal.ReplaceAllString(a, "")
		if s.echo != nil {
			a = s.echo.ReplaceAllString(a, "")
		}
		if a == prev {
			break
		}
	}
	return paragraphBreak.ReplaceAllString(util.CollapseBlankLines(a), "\n")
}
