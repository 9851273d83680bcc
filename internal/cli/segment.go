package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/qbank/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	outJSON      string
	outMD        string
	outQuestions string
	segTimeout   time.Duration
	ruleSubject  string
	rulesPath    string
	noFooter     bool
)

// segmentCmd represents the segment command
var segmentCmd = &cobra.Command{
	Use:   "segment <document>",
	Short: "Segment a single exported notebook into question records",
	Long: `Segment reads one exported notebook and:
- Extracts its text lines (plain text or PDF, "-" for stdin)
- Splits the line stream into one record per question identifier
- Separates each question's command from the statement to be judged
- Normalizes answer keys and partitions accepted from excluded records
- Writes a JSON report, and optionally a Markdown triage report

Example:
  qbank segment caderno.pdf
  qbank segment caderno.txt --json out.json --md triage.md
  pdftotext caderno.pdf - | qbank segment - --subject lingua_inglesa`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	rootCmd.AddCommand(segmentCmd)

	segmentCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	segmentCmd.Flags().StringVar(&outMD, "md", "", "output Markdown triage report path (optional)")
	segmentCmd.Flags().StringVar(&outQuestions, "questions", "", "output Markdown notebook of accepted questions (optional)")
	segmentCmd.Flags().DurationVar(&segTimeout, "timeout", 2*time.Minute, "overall timeout")
	segmentCmd.Flags().StringVar(&ruleSubject, "subject", "", "force one rule set (key or subject name)")
	segmentCmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule table (default: built-in)")
	segmentCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runSegment(cmd *cobra.Command, args []string) error {
	document := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), segTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ruleSubject != "" {
		cfg.Rules.Subject = ruleSubject
	}
	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Segmenting: %s\n", document)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", segTimeout)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg, log)
	if err != nil {
		return err
	}
	p.WithStdin(os.Stdin)

	rep, err := p.Run(ctx, pipeline.Input{Documents: []string{document}})
	if err != nil {
		return fmt.Errorf("segment failed: %w", err)
	}
	if rep.Summary.SkippedInputs > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  %s could not be read, the report is empty\n", document)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	if err := renderer.RenderJSON(rep, outJSON); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(rep, outMD); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
	}
	if outQuestions != "" {
		if err := renderer.RenderQuestions(rep, outQuestions); err != nil {
			return fmt.Errorf("write questions: %w", err)
		}
	}

	s := rep.Summary
	fmt.Fprintf(os.Stderr, "✓ %s: %d records, %d accepted, %d excluded, %d degraded\n",
		document, s.Total, s.Accepted, s.Excluded, s.Degraded)
	fmt.Fprintf(os.Stderr, "  JSON: %s\n", outJSON)
	if outMD != "" {
		fmt.Fprintf(os.Stderr, "  Markdown: %s\n", outMD)
	}
	if outQuestions != "" {
		fmt.Fprintf(os.Stderr, "  Questions: %s\n", outQuestions)
	}

	return nil
}
