package cmd

import (
	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/spf13/cobra"
)

// bindGrouping reads the grouping argument. Drill-downs also accept the all-rows grouping.
func bindGrouping(allowAll bool) argBinder {
	return func(cfg *contract.Config, args []string) error {
		grouping, err := contract.ParseGrouping(args[0], allowAll)
		if err != nil {
			return err
		}
		cfg.Grouping = grouping
		return nil
	}
}

// groupCmd splits a population into buckets.
var groupCmd = &cobra.Command{
	Use:   "group <grouping>",
	Short: "Count the persons of a population per bucket.",
	Long: `Split a population into buckets and count the persons in each one.

Groupings:
- age:                    age in years against today
- follow-duration:        time followed, up to leaving the active list
- wandering-duration:     time since the person started wandering
- field:                  value of an enum, boolean or yes-no field (requires --field)
- out-reason:             reasons for leaving the active list
- action-category:        actions per category (counts actions, not persons)
- person-action-category: persons per category of their actions

Only non-empty buckets are printed, in scale order with "Non renseigné" last.

Examples:
  # Age pyramid of the followed persons of team A
  cohortstats group age --teams A --from 2024-01-01 --to 2024-12-31

  # Persons per housing situation, as CSV
  cohortstats group field --field housing --output csv

  # Done actions per category
  cohortstats group action-category --statuses DONE`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(bindGrouping(false)),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteGroup(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run grouping", err)
		}
	},
}

// drillCmd lists the records behind one bucket.
var drillCmd = &cobra.Command{
	Use:   "drill <grouping> --value <label>",
	Short: "List the persons or actions behind one bucket of a grouping.",
	Long: `List the records counted in one bucket of a grouping. The number of rows always
matches the count printed by the group command for the same bucket.

The grouping "all" lists the whole filtered population and ignores --value.
The action-category grouping lists actions; every other grouping lists persons.

Examples:
  # Persons with no birth date
  cohortstats drill age --value "Non renseigné"

  # Persons living in a squat, exported to parquet
  cohortstats drill field --field housing --value Squat --output parquet --output-file squat.parquet

  # Health actions still to do
  cohortstats drill action-category --value Santé --statuses TODO`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(bindGrouping(true)),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDrill(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run drill-down", err)
		}
	},
}
