package util

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Administração Pública", "administracao publica"},
		{"  LÍNGUA Inglesa ", "lingua inglesa"},
		{"Certo", "certo"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Fold(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeLine(t *testing.T) {
	in := "  Julgue o   item\t a seguir.\r"
	want := "Julgue o item a seguir."
	if got := NormalizeLine(in); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestNormalizeLine_ComposesNFC(t *testing.T) {
	decomposed := "ão"
	if got := NormalizeLine(decomposed); got != "ão" {
		t.Errorf("Expected composed form, got %q", got)
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "\nfirst\n\n\n\nsecond\n\n"
	want := "first\n\nsecond"
	if got := CollapseBlankLines(in); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRepairEncoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double encoded", "AdministraÃ§Ã£o PÃºblica", "Administração Pública"},
		{"clean text untouched", "Administração Pública", "Administração Pública"},
		{"ascii untouched", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepairEncoding(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
