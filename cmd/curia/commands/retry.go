package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/printer"
)

var retryCmd = &cobra.Command{
	Use:   "retry-promotion <member>",
	Short: "Re-attempt a role grant stuck in approved",
	Long: `Re-attempt the role grant for a member whose vote passed but whose
promotion never completed (for example because the bot gateway was down
when the vote closed).`,
	Args: cobra.ExactArgs(1),
	RunE: runRetry,
}

func init() {
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	memberID := args[0]

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}

	if err := svc.RetryPromotion(context.Background(), memberID); err != nil {
		return printer.Error("Promotion retry failed", err.Error(), nil)
	}

	printer.Success("Promotion completed for %s\n", memberID)
	return nil
}
