package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/curator/internal/report"
)

var auditCmd = &cobra.Command{
	Use:   "audit [target]",
	Short: "Audit the corpus or a single document",
	Long: `Run the full audit pipeline over the corpus and report every issue found.

With a target argument only that document's findings are reported. The
target may be given with or without the corpus root prefix or the SKILL.md
suffix.

Examples:
  curator audit
  curator audit skills/commit-review
  curator audit skill-library/git/rebase -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := openCorpus(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	results, err := c.runAudit(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		target, err := c.normalizeTarget(args[0])
		if err != nil {
			return err
		}
		results = filterResults(results, target)
	}

	rep := report.Build(results)
	if err := rep.Render(cmd.OutOrStdout(), cfg.Output); err != nil {
		return err
	}
	if !rep.Passed() {
		return fmt.Errorf("audit failed: %d critical issues", rep.TotalCritical)
	}
	return nil
}
