package cmd

import (
	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/spf13/cobra"
)

// stateCmd shows the recorded state of a person at an instant.
var stateCmd = &cobra.Command{
	Use:   "state <person-id>",
	Short: "Show the recorded state of a person at an instant.",
	Long: `Look up the history version describing a person at an instant. When several
versions start at the same date the latest recorded one wins.

Examples:
  # Current state
  cohortstats state 6f1c0d3e-2b4a-4a43-9c61-0e2f1b7d9a10

  # State on March 1st 2024
  cohortstats state P1 --at 2024-03-01`,
	Args: cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(func(cfg *contract.Config, args []string) error {
		cfg.PersonID = args[0]
		return nil
	}),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteState(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run state lookup", err)
		}
	},
}
