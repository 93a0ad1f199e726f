package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/printer"
	"github.com/curiahq/curia/pkg/ledger"
)

var statusCmd = &cobra.Command{
	Use:   "status <member>",
	Short: "Show a member's portfolio and promotion history",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	memberID := args[0]
	ctx := context.Background()

	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			printer.Printf("No portfolio for %s\n", memberID)
			return nil
		}
		return err
	}

	printer.Printf("Member:  %s\n", p.MemberID)
	printer.Printf("Status:  %s\n", printer.Status(p.Status))
	printer.Printf("Ladder:  %s -> %s\n", p.CurrentRole, p.TargetRole)
	printer.Printf("Items:   %d\n", len(p.Content))
	if p.SubmittedAtMs > 0 {
		printer.Printf("Submitted: %s\n", formatMs(p.SubmittedAtMs))
	}
	if p.RejectedAtMs > 0 {
		printer.Printf("Rejected:  %s\n", formatMs(p.RejectedAtMs))
	}

	if p.Status == ledger.StatusPendingVote {
		if entry, err := store.GetVoteByMember(ctx, memberID); err == nil {
			printer.Printf("Vote:    %s\n", printer.TallyLine(entry.YesCount, entry.NoCount))
		}
	}

	history, err := store.History(ctx, memberID)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		printer.Println()
		printer.Println("Promotions:")
		for _, rec := range history {
			printer.Printf("  %s  %s -> %s  (%d yes / %d no)\n",
				formatMs(rec.PromotedAtMs), rec.FromRole, rec.ToRole, rec.YesCount, rec.NoCount)
		}
	}

	return nil
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
