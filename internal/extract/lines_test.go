package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/qbank/internal/model"
)

func TestLineFilter_Apply(t *testing.T) {
	f := NewLineFilter(model.DefaultConfig().Segmenter)

	raw := []string{
		"",
		"Caderno de Questões - Administração",
		"Ordenação: Por Matéria e Assunto",
		"https://www.tecconcursos.com.br/s/Q3abc",
		"1) 2) 3)",
		"https://www.tecconcursos.com.br/questoes/1",
		"   Julgue   o item\ta seguir. ",
		"",
		"",
		"   ",
		"AdministraÃ§Ã£o",
		"",
	}

	want := []string{
		"https://www.tecconcursos.com.br/questoes/1",
		"Julgue o item a seguir.",
		"",
		"Administração",
	}

	if diff := cmp.Diff(want, f.Apply(raw)); diff != "" {
		t.Errorf("Apply mismatch (-want +got):\n%s", diff)
	}
}

func TestLineFilter_NoRepair(t *testing.T) {
	cfg := model.DefaultConfig().Segmenter
	cfg.RepairEncoding = false
	f := NewLineFilter(cfg)

	got := f.Apply([]string{"AdministraÃ§Ã£o"})
	if len(got) != 1 || got[0] != "AdministraÃ§Ã£o" {
		t.Errorf("Expected text untouched, got %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	want := []string{"a", "b", "c", ""}
	if diff := cmp.Diff(want, SplitLines("a\r\nb\rc\n")); diff != "" {
		t.Errorf("SplitLines mismatch (-want +got):\n%s", diff)
	}
}
