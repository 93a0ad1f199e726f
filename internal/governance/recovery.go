package governance

import (
	"context"
	"fmt"
	"log"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/pkg/ledger"
)

// RecoverState scans the ledger at startup and finishes any work a
// previous process left behind:
//
//  1. Open votes whose tally is already decisive are finalized. A stale
//     finalization claim from a dead process is dropped first so the
//     close can actually proceed.
//  2. Portfolios stuck in approved (vote passed, grant never completed)
//     get their promotion retried.
//
// Individual failures are logged and skipped; recovery never blocks
// startup on one bad record.
func (s *Service) RecoverState(ctx context.Context) error {
	log.Printf("[Recovery] Scanning for interrupted governance work...")

	finalized, err := s.recoverOpenVotes(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan open votes: %w", err)
	}

	promoted, err := s.recoverApprovedPortfolios(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan portfolios: %w", err)
	}

	s.logEvent("recovery_complete", map[string]interface{}{
		"votes_finalized":    finalized,
		"promotions_retried": promoted,
	})

	return nil
}

func (s *Service) recoverOpenVotes(ctx context.Context) (int, error) {
	entries, err := s.store.ListOpenVotes(ctx)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, entry := range entries {
		tally := policy.Tally{Yes: entry.YesCount, No: entry.NoCount}
		outcome := policy.Evaluate(tally, s.cfg.Thresholds())
		if !outcome.Decisive() {
			continue
		}

		if err := s.finalizeRecovered(ctx, entry, outcome, tally); err != nil {
			log.Printf("[Recovery] Failed to finalize vote %s for member %s: %v",
				entry.ID, entry.MemberID, err)
			continue
		}
		finalized++
	}

	return finalized, nil
}

// finalizeRecovered finalizes a decisive open vote found at startup. If
// the finalization claim is already held, the holder must be a process
// that died mid-finalization (a live one would have closed the entry),
// so the claim is dropped and finalization re-runs from the top.
func (s *Service) finalizeRecovered(ctx context.Context, entry *ledger.VoteEntry, outcome policy.Outcome, tally policy.Tally) error {
	if err := s.Finalize(ctx, entry.MemberID, outcome, tally); err != nil {
		return err
	}

	after, err := s.store.GetVote(ctx, entry.ID)
	if err != nil {
		return err
	}
	if after.Closed {
		return nil
	}

	if err := s.store.DropFinalizeClaim(ctx, entry.ID); err != nil {
		return err
	}
	return s.Finalize(ctx, entry.MemberID, outcome, tally)
}

func (s *Service) recoverApprovedPortfolios(ctx context.Context) (int, error) {
	portfolios, err := s.store.ListPortfolios(ctx)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, p := range portfolios {
		if p.Status != ledger.StatusApproved {
			continue
		}

		if err := s.RetryPromotion(ctx, p.MemberID); err != nil {
			log.Printf("[Recovery] Failed to retry promotion for member %s: %v", p.MemberID, err)
			continue
		}
		promoted++
	}

	return promoted, nil
}
