package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/qbank/internal/extract"
	"github.com/ppiankov/qbank/internal/model"
	"github.com/ppiankov/qbank/internal/pipeline"
	"github.com/spf13/cobra"
)

var htmlOnly bool

// canonicalizeCmd represents the canonicalize command
var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <fragment.html>",
	Short: "Canonicalize one captured question fragment",
	Long: `Canonicalize reduces a captured question page to its minimal, safe form:
- Keeps only whitelisted tags and attributes
- Rewrites math as $$...$$ and tables as pipe rows
- Makes image sources absolute and flags images and math
- Splits the resulting text into command and statement

The canonical fragment and the resulting record are printed as JSON.

Example:
  qbank canonicalize captured/987654.html
  qbank canonicalize captured/987654.html --html`,
	Args: cobra.ExactArgs(1),
	RunE: runCanonicalize,
}

func init() {
	rootCmd.AddCommand(canonicalizeCmd)

	canonicalizeCmd.Flags().BoolVar(&htmlOnly, "html", false, "print only the canonical HTML")
	canonicalizeCmd.Flags().StringVar(&ruleSubject, "subject", "", "force one rule set (key or subject name)")
}

// canonicalOutput is what the canonicalize command prints
type canonicalOutput struct {
	Canonical *extract.Canonical   `json:"canonical"`
	Record    model.QuestionRecord `json:"record"`
}

func runCanonicalize(cmd *cobra.Command, args []string) error {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fragment: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ruleSubject != "" {
		cfg.Rules.Subject = ruleSubject
	}

	canonical, err := extract.NewCanonicalizer(cfg.Canonicalizer).Canonicalize(string(data))
	if err != nil && !errors.Is(err, extract.ErrUncapturable) {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
	}

	if htmlOnly {
		if canonical.HTML != "" {
			fmt.Println(canonical.HTML)
		}
		return nil
	}

	p, err := pipeline.NewPipeline(cfg, nil)
	if err != nil {
		return err
	}
	rec, err := p.ProcessFragment(context.Background(), path, string(data))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(canonicalOutput{Canonical: canonical, Record: rec}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
