package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fenwick/toolplane/internal/approval"
	"github.com/fenwick/toolplane/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show approval gate statistics and policy state",
	Long: `Display the persisted approval gate policy and its running statistics.

Shows:
- Global gating mode and per-module overrides
- Every-N cadence and the shared step counter
- Request counters (auto-approved, approved, rejected, timed out)
- Currently pending requests`,
	RunE: runStats,
}

var (
	statsJSON bool // Output as JSON
)

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	gate := approval.New(st, nil, nil)
	state := gate.State()
	stats := gate.GetStats()

	if statsJSON {
		return printStatsJSON(state, stats)
	}
	return printStatsText(state, stats)
}

func printStatsText(state approval.GateState, stats approval.Stats) error {
	fmt.Println()
	fmt.Println("APPROVAL POLICY")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("Global mode:  %s\n", state.GlobalMode)
	fmt.Printf("Every-N:      every %d steps (counter at %d)\n", state.EveryNSteps, state.StepCounter)
	if len(state.Modules) > 0 {
		fmt.Println("Modules:")
		for id, reg := range state.Modules {
			fmt.Printf("  %-16s override=%-10s capabilities=%s\n",
				id, reg.OverrideMode, strings.Join(reg.Capabilities, ","))
		}
	}
	fmt.Println()

	fmt.Println("REQUESTS")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Printf("Total:         %d\n", stats.TotalRequests)
	fmt.Printf("Auto-approved: %d\n", stats.AutoApproved)
	fmt.Printf("Approved:      %d\n", stats.Approved)
	fmt.Printf("Rejected:      %d\n", stats.Rejected)
	fmt.Printf("Timed out:     %d\n", stats.TimedOut)
	fmt.Printf("Pending:       %d\n", stats.Pending)

	if len(state.Pending) > 0 {
		fmt.Println()
		fmt.Println("PENDING")
		fmt.Println(strings.Repeat("─", 50))
		for _, req := range state.Pending {
			fmt.Printf("%s  %s/%s  %s\n",
				req.CreatedAt.Format("15:04:05"), req.ModuleID, req.Capability, req.Action)
		}
	}
	return nil
}

func printStatsJSON(state approval.GateState, stats approval.Stats) error {
	out := struct {
		Policy approval.GateState `json:"policy"`
		Stats  approval.Stats     `json:"stats"`
	}{Policy: state, Stats: stats}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
