package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/printer"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List open promotion votes",
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListOpenVotes(context.Background())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		printer.Println("No open votes.")
		return nil
	}

	for _, entry := range entries {
		age := time.Since(time.UnixMilli(entry.OpenedAtMs)).Round(time.Hour)
		printer.Printf("%-24s %s  open %s\n",
			entry.MemberID, printer.TallyLine(entry.YesCount, entry.NoCount), age)
	}

	return nil
}
