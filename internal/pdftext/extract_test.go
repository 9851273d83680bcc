package pdftext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseContentStream(t *testing.T) {
	stream := []byte(`BT
/F1 10 Tf
72 720 Td
(https://www.tecconcursos.com.br/questoes/987654) Tj
0 -14 Td
(CEBRASPE \(CESPE\) - Auditor) Tj
0 -14 Td
[(L\355ngua ) -120 (Inglesa - Interpreta\347\343o)] TJ
T*
(1\) Considering the text,) Tj
20 0 Td
(judge the following item.) Tj
(The sky is blue.) '
ET
BT
(Gabarito: Certo) Tj
ET`)

	want := []string{
		"https://www.tecconcursos.com.br/questoes/987654",
		"CEBRASPE (CESPE) - Auditor",
		"Língua Inglesa - Interpretação",
		"1) Considering the text, judge the following item.",
		"The sky is blue.",
		"Gabarito: Certo",
	}

	if diff := cmp.Diff(want, ParseContentStream(stream)); diff != "" {
		t.Errorf("ParseContentStream mismatch (-want +got):\n%s", diff)
	}
}

func TestParseContentStream_Empty(t *testing.T) {
	if got := ParseContentStream([]byte("q\n1 0 0 1 0 0 cm\nQ")); len(got) != 0 {
		t.Errorf("Expected no lines from a stream without text, got %q", got)
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`\101\102`, "AB"},
		{`Quest\365es`, "Questões"},
		{`tab\there`, "tab\there"},
	}
	for _, tt := range tests {
		if got := decodeString([]byte(tt.raw)); got != tt.want {
			t.Errorf("decodeString(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExtractLines_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractLines(path); err == nil {
		t.Error("Expected error for invalid PDF")
	}
	if _, err := ExtractLines(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("Expected error for missing file")
	}
}
