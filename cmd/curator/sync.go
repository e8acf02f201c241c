package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/curator/internal/audit"
	"github.com/kestrelworks/curator/internal/fixer"
	"github.com/kestrelworks/curator/internal/report"
)

var syncGatewaysCmd = &cobra.Command{
	Use:   "sync-gateways",
	Short: "Reconcile gateway routing tables with the library",
	Long: `Audit only gateway routing: entries pointing at missing library documents
and library documents no gateway routes to. Multi-option fixes take their
first option, so unattended runs converge; documents matching the configured
exemption patterns are left alone. The operation is idempotent.

Examples:
  curator sync-gateways
  curator sync-gateways --dry-run`,
	Args: cobra.NoArgs,
	RunE: runSyncGatewaysCmd,
}

func init() {
	rootCmd.AddCommand(syncGatewaysCmd)
}

func runSyncGatewaysCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := openCorpus(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	narrow := func(results map[string]*audit.DocumentResult) map[string]*audit.DocumentResult {
		return filterPhase(results, audit.PhaseGatewaySync)
	}
	resolver := &fixer.AutoResolver{AcceptHybrid: true}

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
		return fmt.Errorf("gateway sync finished with %d critical issues", rep.TotalCritical)
	}
	return nil
}
