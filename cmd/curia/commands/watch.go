package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/curiahq/curia/internal/printer"
	"github.com/curiahq/curia/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live governance activity",
	Long: `Stream portfolio transitions and ballot counts for the community as
they happen. Press Ctrl-C to stop.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		cancel()
	}()

	printer.Step("Watching community '%s'...\n", communityName)
	return watch.Follow(ctx, store, os.Stdout)
}
