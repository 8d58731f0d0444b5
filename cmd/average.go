package cmd

import (
	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/spf13/cobra"
)

// averageCmd averages a duration over a population.
var averageCmd = &cobra.Command{
	Use:   "average <measure>",
	Short: "Average a duration or a number field over a population.",
	Long: `Average a measure over the persons of a population.

Measures:
- follow-duration:    days followed, up to leaving the active list
- wandering-duration: days since the person started wandering
- date-field:         days since the date of a custom field (requires --field)
- number-field:       count, total and average of a number field (requires --field)

Durations print in days, months or years depending on their size.

Examples:
  # Average follow duration of team A
  cohortstats average follow-duration --teams A

  # Days since the last visit
  cohortstats average date-field --field lastVisit --output json`,
	Args: cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(func(cfg *contract.Config, args []string) error {
		measure, err := contract.ParseMeasure(args[0])
		if err != nil {
			return err
		}
		cfg.Measure = measure
		return nil
	}),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAverage(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run average", err)
		}
	},
}
