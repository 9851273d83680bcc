package rules

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/qbank/internal/util"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTable []byte

// DefaultFallbackMaxLen bounds the last paragraph used by the structural fallback
const DefaultFallbackMaxLen = 800

// Trigger is one named pattern of a trigger cascade
type Trigger struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// CompiledTrigger is a trigger ready for matching
type CompiledTrigger struct {
	Name string
	Re   *regexp.Regexp
}

// RuleSet is the splitting configuration of one subject
type RuleSet struct {
	Key            string    `yaml:"-"`
	Subject        string    `yaml:"subject"`          // Subject name used when the metadata has none
	Aliases        []string  `yaml:"aliases"`          // Names matched against subjects and file names
	FallbackMaxLen int       `yaml:"fallback_max_len"` // Longest last paragraph the fallback accepts
	ImageKeywords  []string  `yaml:"image_keywords"`   // Words hinting that a statement depends on a picture
	Triggers       []Trigger `yaml:"triggers"`

	compiled      []CompiledTrigger
	imageKeywords *regexp.Regexp
}

// Compiled returns the compiled trigger cascade in declaration order
func (rs *RuleSet) Compiled() []CompiledTrigger {
	return rs.compiled
}

// MentionsImage reports whether text names one of the image keywords
func (rs *RuleSet) MentionsImage(text string) bool {
	if rs.imageKeywords == nil {
		return false
	}
	return rs.imageKeywords.MatchString(text)
}

func (rs *RuleSet) compile() error {
	if rs.FallbackMaxLen <= 0 {
		rs.FallbackMaxLen = DefaultFallbackMaxLen
	}

	rs.compiled = make([]CompiledTrigger, 0, len(rs.Triggers))
	for i, t := range rs.Triggers {
		re, err := regexp.Compile(`(?is)` + t.Pattern)
		if err != nil {
			return fmt.Errorf("rule set %s: trigger %d (%s): %w", rs.Key, i, t.Name, err)
		}
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("trigger_%d", i)
		}
		rs.compiled = append(rs.compiled, CompiledTrigger{Name: name, Re: re})
	}

	if len(rs.ImageKeywords) > 0 {
		quoted := make([]string, len(rs.ImageKeywords))
		for i, kw := range rs.ImageKeywords {
			quoted[i] = regexp.QuoteMeta(kw)
		}
		rs.imageKeywords = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)s?\b`)
	}
	return nil
}

// Table is the complete rule table: rule sets keyed by subject, the issuer
// list and the answer echo pattern.
type Table struct {
	Default    string              `yaml:"default"`
	AnswerEcho string              `yaml:"answer_echo"`
	Issuers    []string            `yaml:"issuers"`
	Sets       map[string]*RuleSet `yaml:"rule_sets"`

	echo *regexp.Regexp
}

// Load reads a rule table from path, or the built-in table when path is empty
func Load(path string) (*Table, error) {
	if path == "" {
		return Parse(defaultTable)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and compiles a YAML rule table
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse rule table: %w", err)
	}
	if len(t.Sets) == 0 {
		return nil, fmt.Errorf("parse rule table: no rule sets")
	}
	if t.Default == "" {
		t.Default = t.Keys()[0]
	}
	if _, ok := t.Sets[t.Default]; !ok {
		return nil, fmt.Errorf("parse rule table: default rule set %q not defined", t.Default)
	}

	for key, rs := range t.Sets {
		if rs == nil {
			return nil, fmt.Errorf("parse rule table: rule set %s is empty", key)
		}
		rs.Key = key
		if err := rs.compile(); err != nil {
			return nil, fmt.Errorf("parse rule table: %w", err)
		}
	}

	if t.AnswerEcho != "" {
		re, err := regexp.Compile(`(?i)` + t.AnswerEcho)
		if err != nil {
			return nil, fmt.Errorf("parse rule table: answer_echo: %w", err)
		}
		t.echo = re
	}
	return &t, nil
}

// EchoPattern returns the compiled pattern for echoed answer keys, or nil
func (t *Table) EchoPattern() *regexp.Regexp {
	return t.echo
}

// Keys lists the rule set keys, sorted
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Sets))
	for k := range t.Sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSet returns the rule set used when nothing else matches
func (t *Table) DefaultSet() *RuleSet {
	return t.Sets[t.Default]
}

// Get returns the rule set with the given key
func (t *Table) Get(key string) (*RuleSet, bool) {
	rs, ok := t.Sets[key]
	return rs, ok
}

// Lookup finds the rule set for a subject name by key, subject or alias.
// It returns nil when no set matches.
func (t *Table) Lookup(subject string) *RuleSet {
	folded := util.Fold(subject)
	if folded == "" {
		return nil
	}
	if rs, ok := t.Sets[subject]; ok {
		return rs
	}
	for _, key := range t.Keys() {
		rs := t.Sets[key]
		if rs.Subject != "" && util.Fold(rs.Subject) == folded {
			return rs
		}
		for _, alias := range rs.Aliases {
			if util.Fold(alias) == folded {
				return rs
			}
		}
	}
	return nil
}

// ForDocument infers the rule set from a document file name. A set matches
// when one of its aliases or its subject appears as a whole word in the
// name, or prefixes the name followed by a digit.
func (t *Table) ForDocument(path string) *RuleSet {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := " " + wordSeparators.ReplaceAllString(util.Fold(base), " ") + " "

	for _, key := range t.Keys() {
		rs := t.Sets[key]
		candidates := append([]string{rs.Subject}, rs.Aliases...)
		for _, c := range candidates {
			c = strings.TrimSpace(wordSeparators.ReplaceAllString(util.Fold(c), " "))
			if c == "" {
				continue
			}
			if strings.Contains(name, " "+c+" ") {
				return rs
			}
			rest := strings.TrimPrefix(name, " "+c)
			if rest != name && rest != "" && rest[0] >= '0' && rest[0] <= '9' {
				return rs
			}
		}
	}
	return nil
}

var wordSeparators = regexp.MustCompile(`[\s_\-.]+`)
