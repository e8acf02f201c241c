package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/fixer"
	"github.com/kestrelworks/curator/internal/report"
)

var fixYes bool

var fixCmd = &cobra.Command{
	Use:   "fix [target]",
	Short: "Apply suggested fixes, then re-audit",
	Long: `Audit the corpus, apply accepted fixes, and re-audit to confirm closure.

Deterministic fixes are applied without prompting. Fixes with several viable
options prompt for a choice; --yes takes the first option instead, for
unattended runs. Findings that need human judgment are reported with ranked
candidates but never auto-applied.

Any fix whose issue survives the re-audit is rolled back and reported as a
critical failure.

Examples:
  curator fix
  curator fix --dry-run
  curator fix --yes
  curator fix skills/commit-review`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFixCmd,
}

func init() {
	fixCmd.Flags().BoolVarP(&fixYes, "yes", "y", false, "Accept the first option of every multi-option fix")
	rootCmd.AddCommand(fixCmd)
}

func runFixCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := openCorpus(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var narrow resultFilter
	if len(args) == 1 {
		target, err := c.normalizeTarget(args[0])
		if err != nil {
			return err
		}
		narrow = func(results map[string]*audit.DocumentResult) map[string]*audit.DocumentResult {
			return filterResults(results, target)
		}
	}

	var resolver fixer.Resolver
	if fixYes {
		resolver = &fixer.AutoResolver{AcceptHybrid: true}
	} else {
		resolver = &fixer.InteractiveResolver{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}

	result, final, err := runFixRounds(cmd.Context(), cfg, c, resolver, GetDryRun(), narrow)
	if err != nil {
		return err
	}

	rep := report.Build(final)
	rep.AttachFixes(result, GetDryRun())
	if err := rep.Render(cmd.OutOrStdout(), cfg.Output); err != nil {
		return err
	}
	if !rep.Passed() {
		return fmt.Errorf("fix run finished with %d critical issues", rep.TotalCritical)
	}
	return nil
}
