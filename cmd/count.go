package cmd

import (
	"github.com/huangsam/cohortstats/core"
	"github.com/huangsam/cohortstats/internal/contract"
	"github.com/spf13/cobra"
)

// bindPopulation lets the population be given positionally instead of with --population.
func bindPopulation(cfg *contract.Config, args []string) error {
	if len(args) == 0 {
		return nil
	}
	pop, err := contract.ParsePopulation(args[0])
	if err != nil {
		return err
	}
	cfg.Population = pop
	return nil
}

// bindActivity reads the activity kind argument.
func bindActivity(cfg *contract.Config, args []string) error {
	kind, err := contract.ParseActivityKind(args[0])
	if err != nil {
		return err
	}
	cfg.Activity = kind
	return nil
}

// countCmd counts the persons of a population.
var countCmd = &cobra.Command{
	Use:   "count [created|followed|all]",
	Short: "Count the persons of a population.",
	Long: `Count the distinct persons of a population after filters, teams and period apply.

Populations:
- created:  persons created during the period by one of the teams
- followed: persons followed by one of the teams during the period (default)
- all:      every person assigned to one of the teams during the period

Examples:
  # Persons followed by team A in 2024
  cohortstats count --teams A --from 2024-01-01 --to 2024-12-31

  # Persons created by teams A and B over the last 6 months
  cohortstats count created --teams A,B --from "6 months ago" --to now

  # Apply the filters of a context file
  cohortstats count --context-file context.yaml --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWith(bindPopulation),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCount(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run count", err)
		}
	},
}

// countActivityCmd counts the activities of one kind.
var countActivityCmd = &cobra.Command{
	Use:   "count-activity <kind>",
	Short: "Count the activities of one kind recorded by the teams.",
	Long: `Count the actions, consultations, passages or encounters recorded in the period
by one of the teams. Deleted activities are ignored.

Examples:
  # Passages recorded by team A in 2024
  cohortstats count-activity passage --teams A --from 2024-01-01 --to 2024-12-31`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(bindActivity),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteActivityCount(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run activity count", err)
		}
	},
}

// countWithActivityCmd counts the persons of a population having an activity of one kind.
var countWithActivityCmd = &cobra.Command{
	Use:   "count-with-activity <kind>",
	Short: "Count the persons of a population with at least one activity of one kind.",
	Long: `Count the persons of the population who have at least one activity of the given
kind in the period, such as persons with a passage or persons with a treatment.

Kinds: action, consultation, passage, encounter, treatment, person_place, comment

Examples:
  # Followed persons who had at least one consultation
  cohortstats count-with-activity consultation --teams A --from 2024-01-01 --to 2024-12-31

  # Restrict actions to some categories
  cohortstats count-with-activity action --categories "Santé,Logement"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWith(bindActivity),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCountWithActivity(rootCtx, cfg, store); err != nil {
			contract.LogFatal("Cannot run count with activity", err)
		}
	},
}
