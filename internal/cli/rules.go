package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/qbank/internal/rules"
	"github.com/spf13/cobra"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the loaded rule sets",
	Long: `Rules prints every rule set of the rule table with its subject,
aliases, fallback threshold and trigger cascade, in cascade order.

Example:
  qbank rules
  qbank rules --rules ./my-rules.yaml`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule table (default: built-in)")
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}

	table, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		return err
	}

	source := cfg.Rules.Path
	if source == "" {
		source = "(built-in)"
	}
	fmt.Printf("Rule table: %s\n", source)
	fmt.Printf("Default set: %s\n\n", table.Default)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSUBJECT\tALIASES\tFALLBACK\tTRIGGERS")
	for _, key := range table.Keys() {
		rs, _ := table.Get(key)
		names := make([]string, 0, len(rs.Triggers))
		for _, t := range rs.Triggers {
			names = append(names, t.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			key, orDashCLI(rs.Subject), orDashCLI(strings.Join(rs.Aliases, ", ")),
			rs.FallbackMaxLen, orDashCLI(strings.Join(names, " > ")))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	if len(table.Issuers) > 0 {
		fmt.Printf("\nIssuers: %s\n", strings.Join(table.Issuers, ", "))
	}
	return nil
}

func orDashCLI(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
