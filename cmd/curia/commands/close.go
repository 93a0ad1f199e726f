package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/internal/printer"
)

var closeReject bool

var closeCmd = &cobra.Command{
	Use:   "close <member>",
	Short: "Force-close a vote that will never reach quorum",
	Long: `Force-close a member's open vote with an operator-chosen outcome.
The current tally is recorded and the normal finalization path applies
the transition, so the result is indistinguishable from an organic close.

Only --reject is supported: a promotion should always earn its approval
from the voters.`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	closeCmd.Flags().BoolVar(&closeReject, "reject", false, "Close the vote as rejected")
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	memberID := args[0]

	if !closeReject {
		return printer.Error("Missing outcome flag",
			"Force-closing requires an explicit outcome.",
			[]string{"curia close " + memberID + " --reject"})
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}

	tally, err := svc.ForceClose(context.Background(), memberID, policy.OutcomeReject)
	if err != nil {
		return printer.Error("Force close failed", err.Error(), nil)
	}

	printer.Success("Vote for %s closed as rejected (%d yes / %d no)\n", memberID, tally.Yes, tally.No)
	return nil
}
