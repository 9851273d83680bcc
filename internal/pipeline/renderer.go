package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/qbank/internal/model"
)

// Renderer writes run reports to disk
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(rep *model.RunReport, path string) error {
	return writeJSON(rep, path)
}

// RenderSplit writes accepted.json and excluded.json as flat arrays
func (r *Renderer) RenderSplit(rep *model.RunReport, dir string) ([]string, error) {
	accepted := filepath.Join(dir, "accepted.json")
	excluded := filepath.Join(dir, "excluded.json")

	if err := writeJSON(nonNil(rep.Accepted), accepted); err != nil {
		return nil, err
	}
	if err := writeJSON(nonNil(rep.Excluded), excluded); err != nil {
		return nil, err
	}
	return []string{accepted, excluded}, nil
}

// RenderMarkdown writes the triage report: counts, signals, the subject
// tree and every degraded or excluded record with its origin link
func (r *Renderer) RenderMarkdown(rep *model.RunReport, path string) error {
	return writeFile(path, []byte(r.triageMarkdown(rep)))
}

// RenderQuestions writes the accepted records as a readable Markdown
// notebook, one section per question
func (r *Renderer) RenderQuestions(rep *model.RunReport, path string) error {
	var b strings.Builder
	b.WriteString("# Questões aceitas\n\n")
	for _, rec := range rep.Accepted {
		fmt.Fprintf(&b, "## Questão %s\n\n", rec.ExternalID)
		fmt.Fprintf(&b, "- **Matéria:** %s\n", orDash(rec.Subject))
		fmt.Fprintf(&b, "- **Assunto:** %s\n", orDash(rec.Topic))
		fmt.Fprintf(&b, "- **Banca:** %s\n", orDash(rec.BankOrAgency))
		fmt.Fprintf(&b, "- **Gabarito:** %s\n", rec.AnswerKey)
		if rec.OriginLink != "" {
			fmt.Fprintf(&b, "- **Origem:** <%s>\n", rec.OriginLink)
		}
		b.WriteString("\n")
		if rec.Context != "" {
			b.WriteString("### Comando\n\n" + rec.Context + "\n\n")
		}
		b.WriteString("### Afirmação\n\n" + rec.Assertion + "\n\n")
		if rec.HasImage && rec.ImageURL != "" {
			fmt.Fprintf(&b, "![imagem](%s)\n\n", rec.ImageURL)
		}
	}
	r.footer(&b)
	return writeFile(path, []byte(b.String()))
}

func (r *Renderer) triageMarkdown(rep *model.RunReport) string {
	s := rep.Summary
	var b strings.Builder

	b.WriteString("# qbank run report\n\n")
	fmt.Fprintf(&b, "**Run:** `%s`  \n", rep.RunID)
	fmt.Fprintf(&b, "**Generated:** %s  \n", rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "**Documents:** %d  \n", len(rep.Documents))
	if rep.FragmentDir != "" {
		fmt.Fprintf(&b, "**Fragments:** `%s`  \n", rep.FragmentDir)
	}
	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total | %d |\n", s.Total)
	fmt.Fprintf(&b, "| Accepted | %d |\n", s.Accepted)
	fmt.Fprintf(&b, "| Excluded | %d |\n", s.Excluded)
	fmt.Fprintf(&b, "| Degraded | %d |\n", s.Degraded)
	fmt.Fprintf(&b, "| Orphans | %d |\n", s.Orphans)
	fmt.Fprintf(&b, "| Skipped inputs | %d |\n", s.SkippedInputs)

	if len(s.ByStatus) > 0 {
		b.WriteString("\n### By status\n\n| Status | Count |\n|---|---|\n")
		for _, k := range sortedKeys(s.ByStatus) {
			fmt.Fprintf(&b, "| %s | %d |\n", k, s.ByStatus[k])
		}
	}
	if len(s.ByExclusion) > 0 {
		b.WriteString("\n### By exclusion reason\n\n| Reason | Count |\n|---|---|\n")
		for _, k := range sortedKeys(s.ByExclusion) {
			fmt.Fprintf(&b, "| %s | %d |\n", k, s.ByExclusion[k])
		}
	}

	if len(s.Signals) > 0 {
		b.WriteString("\n## Signals\n\n")
		for _, sig := range s.Signals {
			fmt.Fprintf(&b, "- %s **%s**: %s\n", severityIcon(sig.Severity), sig.Type, sig.Description)
		}
	}

	if len(s.Subjects) > 0 {
		b.WriteString("\n## Subjects\n\n")
		for _, sc := range s.Subjects {
			fmt.Fprintf(&b, "- **%s** (%d)\n", sc.Subject, sc.Total)
			for _, topic := range sortedKeys(sc.Topics) {
				fmt.Fprintf(&b, "  - %s (%d)\n", topic, sc.Topics[topic])
			}
		}
	}

	var degraded []model.QuestionRecord
	for _, rec := range rep.Accepted {
		if rec.Degraded() {
			degraded = append(degraded, rec)
		}
	}
	if len(degraded) > 0 {
		b.WriteString("\n## Degraded records\n\n| ID | Subject | Status | Link |\n|---|---|---|---|\n")
		for _, rec := range degraded {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", rec.ExternalID, cell(rec.Subject), joinStatus(rec.Status), rec.OriginLink)
		}
	}

	if len(rep.Excluded) > 0 {
		b.WriteString("\n## Excluded records\n\n| ID | Reason | Raw key | Link |\n|---|---|---|---|\n")
		for _, rec := range rep.Excluded {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", rec.ExternalID, rec.ExcludedReason, cell(rec.RawAnswerKey), rec.OriginLink)
		}
	}

	if len(rep.Orphans) > 0 {
		b.WriteString("\n## Orphan fragments\n\n")
		b.WriteString(strings.Join(rep.Orphans, ", ") + "\n")
	}

	r.footer(&b)
	return b.String()
}

func (r *Renderer) footer(b *strings.Builder) {
	if r.includeFooter {
		b.WriteString("\n---\n\n*Generated by qbank. Degraded records are kept for review, not dropped.*\n")
	}
}

func writeJSON(v interface{}, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func nonNil(records []model.QuestionRecord) []model.QuestionRecord {
	if records == nil {
		return []model.QuestionRecord{}
	}
	return records
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func joinStatus(status []model.Status) string {
	parts := make([]string, len(status))
	for i, s := range status {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func severityIcon(s model.SignalSeverity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	}
	return "🟢"
}

func cell(s string) string {
	return strings.ReplaceAll(orDash(s), "|", `\|`)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
