package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ppiankov/qbank/internal/cache"
	"github.com/ppiankov/qbank/internal/pipeline"
	"github.com/ppiankov/qbank/internal/worker"
	"github.com/spf13/cobra"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	listFile     string
	fragmentDir  string
	noStore      bool
	// ruleSubject, rulesPath and noFooter are defined in segment.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [documents...]",
	Short: "Segment many notebooks and reconcile them with captured fragments",
	Long: `Batch processes a whole run:
- Segments every document in parallel (PDF path)
- Canonicalizes captured fragments from a directory and the fragment store (web path)
- Reconciles both sources by question identifier
- Normalizes answer keys and partitions accepted from excluded records
- Writes report.json, accepted.json, excluded.json and Markdown reports

Example:
  qbank batch caderno1.pdf caderno2.pdf
  qbank batch --list documents.txt --fragments ./captured --output-dir ./out
  qbank batch caderno.txt --concurrency 8 --no-store`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for reports (default: output.dir from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&listFile, "list", "", "file listing documents, one per line")
	batchCmd.Flags().StringVar(&fragmentDir, "fragments", "", "directory of captured fragment HTML files")
	batchCmd.Flags().BoolVar(&noStore, "no-store", false, "do not read fragments from the capture store")

	batchCmd.Flags().StringVar(&ruleSubject, "subject", "", "force one rule set (key or subject name)")
	batchCmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule table (default: built-in)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	documents := append([]string(nil), args...)
	if listFile != "" {
		listed, err := worker.ReadListFile(listFile)
		if err != nil {
			return fmt.Errorf("read document list: %w", err)
		}
		documents = append(documents, listed...)
	}
	if len(documents) == 0 && fragmentDir == "" {
		return fmt.Errorf("no input: pass documents, --list or --fragments")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
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

	useStore := cfg.Cache.Enabled && !noStore

	banner("qbank Batch Processing")
	fmt.Fprintf(os.Stderr, "  Documents:    %d\n", len(documents))
	if fragmentDir != "" {
		fmt.Fprintf(os.Stderr, "  Fragments:    %s\n", fragmentDir)
	}
	if useStore {
		fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Cache.Dir)
	}
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewPipeline(cfg, log)
	if err != nil {
		return err
	}
	p.WithStdin(os.Stdin)
	if useStore {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		p.WithStore(cache.NewFragmentStore(layered, cfg.Cache.DiskTTL))
	}

	fmt.Fprintf(os.Stderr, "⚙️  Processing with %d workers...\n", cfg.Concurrency.Workers)
	rep, err := p.Run(ctx, pipeline.Input{Documents: documents, FragmentDir: fragmentDir})
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter)
	written := []string{filepath.Join(cfg.Output.Dir, "report.json")}
	if err := renderer.RenderJSON(rep, written[0]); err != nil {
		return fmt.Errorf("write JSON: %w", err)
	}
	if cfg.Output.SplitFiles {
		paths, err := renderer.RenderSplit(rep, cfg.Output.Dir)
		if err != nil {
			return fmt.Errorf("write split files: %w", err)
		}
		written = append(written, paths...)
	}
	if cfg.Output.Markdown {
		triage := filepath.Join(cfg.Output.Dir, "report.md")
		if err := renderer.RenderMarkdown(rep, triage); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
		questions := filepath.Join(cfg.Output.Dir, "questions.md")
		if err := renderer.RenderQuestions(rep, questions); err != nil {
			return fmt.Errorf("write questions: %w", err)
		}
		written = append(written, triage, questions)
	}

	s := rep.Summary
	banner("Batch Complete")
	fmt.Fprintf(os.Stderr, "  Records:   %d\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Accepted:  %d\n", s.Accepted)
	fmt.Fprintf(os.Stderr, "  Excluded:  %d\n", s.Excluded)
	fmt.Fprintf(os.Stderr, "  Degraded:  %d\n", s.Degraded)
	fmt.Fprintf(os.Stderr, "  Orphans:   %d\n", s.Orphans)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d inputs\n", s.SkippedInputs)
	for _, sig := range s.Signals {
		fmt.Fprintf(os.Stderr, "  [%s] %s\n", sig.Severity, sig.Description)
	}
	fmt.Fprintf(os.Stderr, "\n")
	for _, path := range written {
		fmt.Fprintf(os.Stderr, "  ✓ %s\n", path)
	}
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
