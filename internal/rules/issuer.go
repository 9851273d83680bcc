package rules

import (
	"regexp"
	"strings"
)

// IssuerMatcher recognizes lines that name an exam issuer (bank or agency)
type IssuerMatcher struct {
	names    []string
	patterns []*regexp.Regexp
}

// NewIssuerMatcher builds a matcher over the given issuer names. Names match
// as whole words, case-insensitively.
func NewIssuerMatcher(names []string) *IssuerMatcher {
	m := &IssuerMatcher{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m.names = append(m.names, name)
		m.patterns = append(m.patterns, regexp.MustCompile(`(?i)(?:^|[^\pL\pN])`+regexp.QuoteMeta(name)+`(?:$|[^\pL\pN])`))
	}
	return m
}

// Match reports whether the line names a known issuer
func (m *IssuerMatcher) Match(line string) bool {
	_, ok := m.Classify(line)
	return ok
}

// Classify returns the first known issuer named on the line
func (m *IssuerMatcher) Classify(line string) (string, bool) {
	for i, re := range m.patterns {
		if re.MatchString(line) {
			return m.names[i], true
		}
	}
	return "", false
}

// Names returns the configured issuer names
func (m *IssuerMatcher) Names() []string {
	return append([]string(nil), m.names...)
}
