package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Default(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []string{"administracao_publica", "geral", "lingua_inglesa", "lingua_portuguesa", "regimentos"}
	if diff := cmp.Diff(want, table.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}

	if table.DefaultSet().Key != "geral" {
		t.Errorf("Expected default geral, got %s", table.DefaultSet().Key)
	}
	if table.EchoPattern() == nil {
		t.Error("Expected answer echo pattern to be compiled")
	}

	ap, _ := table.Get("administracao_publica")
	if len(ap.Compiled()) != 5 {
		t.Errorf("Expected 5 shared Portuguese triggers, got %d", len(ap.Compiled()))
	}
	if ap.FallbackMaxLen != 800 {
		t.Errorf("Expected fallback 800, got %d", ap.FallbackMaxLen)
	}
}

func TestTable_Lookup(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		subject string
		want    string
	}{
		{"Administração Pública", "administracao_publica"},
		{"administracao publica", "administracao_publica"},
		{"LÍNGUA INGLESA", "lingua_inglesa"},
		{"lingua_portuguesa", "lingua_portuguesa"},
		{"Direito Penal", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			rs := table.Lookup(tt.subject)
			got := ""
			if rs != nil {
				got = rs.Key
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTable_ForDocument(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/data/ING_2023.pdf", "lingua_inglesa"},
		{"AP1.pdf", "administracao_publica"},
		{"caderno-administracao-publica.txt", "administracao_publica"},
		{"Regimentos e Código de Ética.pdf", "regimentos"},
		{"apostila.pdf", ""},
		{"notebook.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rs := table.ForDocument(tt.path)
			got := ""
			if rs != nil {
				got = rs.Key
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRuleSet_MentionsImage(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	en, _ := table.Get("lingua_inglesa")

	if !en.MentionsImage("Based on the cartoons above, judge the item.") {
		t.Error("Expected plural keyword to match")
	}
	if en.MentionsImage("The imagery of the poem is vivid.") {
		t.Error("Expected partial word not to match")
	}

	lp, _ := table.Get("lingua_portuguesa")
	for _, text := range []string{"Observe o cartum.", "Na figura, julgue o item.", "A imagem mostra", "O infográfico indica", "As imagens acima"} {
		if !lp.MentionsImage(text) {
			t.Errorf("Expected %q to mention an image", text)
		}
	}

	pt, _ := table.Get("geral")
	if pt.MentionsImage("figure") {
		t.Error("Expected rule set without keywords never to match")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no sets", "default: x\n"},
		{"unknown default", "default: missing\nrule_sets:\n  a:\n    triggers: []\n"},
		{"bad pattern", "rule_sets:\n  a:\n    triggers:\n      - name: broken\n        pattern: '(unclosed'\n"},
		{"bad yaml", "rule_sets: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	data := `
default: only
rule_sets:
  only:
    subject: Auditoria
    triggers:
      - pattern: 'julgue\s+o\s+item.*?[.]'
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rs := table.DefaultSet()
	if rs.FallbackMaxLen != DefaultFallbackMaxLen {
		t.Errorf("Expected default fallback %d, got %d", DefaultFallbackMaxLen, rs.FallbackMaxLen)
	}
	if got := rs.Compiled()[0].Name; got != "trigger_0" {
		t.Errorf("Expected generated trigger name, got %q", got)
	}
	if table.EchoPattern() != nil {
		t.Error("Expected no answer echo pattern")
	}
}

func TestIssuerMatcher(t *testing.T) {
	m := NewIssuerMatcher([]string{"CEBRASPE", "FGV", "FCC", " "})

	tests := []struct {
		line  string
		want  string
		match bool
	}{
		{"CEBRASPE (CESPE) - Auditor Federal (TCU)/2023", "CEBRASPE", true},
		{"fgv - Analista (SEFAZ)/2022", "FGV", true},
		{"FCC/2019", "FCC", true},
		{"Administração Pública - Gestão de Pessoas", "", false},
		{"FGVX Consultoria", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := m.Classify(tt.line)
			if ok != tt.match || got != tt.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.want, tt.match, got, ok)
			}
			if m.Match(tt.line) != tt.match {
				t.Errorf("Match disagrees with Classify for %q", tt.line)
			}
		})
	}

	if len(m.Names()) != 3 {
		t.Errorf("Expected blank names to be skipped, got %v", m.Names())
	}
}
