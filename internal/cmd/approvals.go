package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick/toolplane/internal/config"
	"github.com/fenwick/toolplane/internal/tui"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Open the interactive approvals console",
	Long: `Open a terminal console showing the gate's pending approval requests.

Select a request with j/k, approve it with 'a', reject it with 'r'.
Recent decisions are shown below the pending list. The console shares
the configured store with the running control plane, so policy changes
and decisions made here take effect immediately.`,
	RunE: runApprovals,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
}

func runApprovals(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	gate, err := newGate(cfg, st, nil, log)
	if err != nil {
		return fmt.Errorf("building gate: %w", err)
	}

	return tui.Run(gate)
}
