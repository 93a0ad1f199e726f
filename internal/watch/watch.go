// Package watch streams live governance activity to a terminal. Used by
// the curia CLI to follow portfolio transitions and ballot counts as
// they happen.
package watch

import (
	"context"
	"fmt"
	"io"

	"github.com/curiahq/curia/pkg/ledger"
)

// Follow subscribes to the community's portfolio and vote event channels
// and writes one line per event to w until the context is cancelled.
// Subscription errors are reported on the writer but do not stop the
// stream.
func Follow(ctx context.Context, client *ledger.Client, w io.Writer) error {
	portfolios, err := client.SubscribePortfolioEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to portfolio events: %w", err)
	}
	defer portfolios.Close()

	votes, err := client.SubscribeVoteEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to vote events: %w", err)
	}
	defer votes.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case p, ok := <-portfolios.Events():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "portfolio %s -> %s\n", p.MemberID, p.Status)

		case ev, ok := <-votes.Events():
			if !ok {
				return nil
			}
			writeVoteEvent(w, ev)

		case err, ok := <-portfolios.Errors():
			if ok && err != nil {
				fmt.Fprintf(w, "stream error: %v\n", err)
			}

		case err, ok := <-votes.Errors():
			if ok && err != nil {
				fmt.Fprintf(w, "stream error: %v\n", err)
			}
		}
	}
}

func writeVoteEvent(w io.Writer, ev *ledger.VoteEvent) {
	switch ev.Kind {
	case ledger.VoteEventOpened:
		fmt.Fprintf(w, "vote opened for %s\n", ev.MemberID)
	case ledger.VoteEventBallot:
		// Ballot events carry only the vote ID and the fresh tally
		fmt.Fprintf(w, "ballot on vote %s: %d yes / %d no\n", ev.VoteID, ev.YesCount, ev.NoCount)
	case ledger.VoteEventClosed:
		fmt.Fprintf(w, "vote closed for %s: %s (%d yes / %d no)\n",
			ev.MemberID, ev.Outcome, ev.YesCount, ev.NoCount)
	default:
		fmt.Fprintf(w, "vote event %s on vote %s\n", ev.Kind, ev.VoteID)
	}
}
