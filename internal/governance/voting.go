package governance

import (
	"context"
	"fmt"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/internal/render"
	"github.com/curiahq/curia/pkg/ledger"
)

// CastVote records one voter's ballot on the member's open vote and
// returns the tally snapshot produced by exactly that ballot.
//
// The ledger serializes the duplicate check against the increment, so the
// returned counts are evaluated as-is: if this ballot makes the tally
// decisive, finalization runs before CastVote returns. Finalization
// failures are logged for operators rather than surfaced to the voter;
// the ballot itself has already been counted and the recovery pass will
// finish the job.
func (s *Service) CastVote(ctx context.Context, memberID, voterID string, choice ledger.Choice) (policy.Tally, error) {
	if err := choice.Validate(); err != nil {
		return policy.Tally{}, err
	}

	entry, err := s.store.GetVoteByMember(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return policy.Tally{}, ErrNotFound
		}
		return policy.Tally{}, fmt.Errorf("failed to load vote: %w", err)
	}
	if entry.Closed {
		return policy.Tally{}, ledger.ErrVotingClosed
	}

	yes, no, err := s.store.CastBallot(ctx, entry.ID, voterID, choice)
	if err != nil {
		// ErrDuplicateVote and ErrVotingClosed pass through untouched so
		// callers can match them.
		return policy.Tally{}, err
	}
	tally := policy.Tally{Yes: yes, No: no}

	s.logEvent("ballot_cast", map[string]interface{}{
		"member_id": memberID,
		"vote_id":   entry.ID,
		"yes":       yes,
		"no":        no,
	})

	s.refreshVoteMessage(ctx, memberID, tally)

	outcome := policy.Evaluate(tally, s.cfg.Thresholds())
	if outcome.Decisive() {
		if err := s.Finalize(ctx, memberID, outcome, tally); err != nil {
			s.logEvent("finalize_failed", map[string]interface{}{
				"member_id": memberID,
				"vote_id":   entry.ID,
				"outcome":   string(outcome),
				"error":     err.Error(),
			})
		}
	}

	return tally, nil
}

// OpenVotes lists every vote currently open in the community.
func (s *Service) OpenVotes(ctx context.Context) ([]*ledger.VoteEntry, error) {
	return s.store.ListOpenVotes(ctx)
}

// refreshVoteMessage re-renders the public vote message with the current
// tally. Best-effort: a stale display corrects itself on the next ballot
// and never blocks the vote.
func (s *Service) refreshVoteMessage(ctx context.Context, memberID string, tally policy.Tally) {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil || p.VoteMessageRef == "" {
		return
	}

	content := render.VoteProgress(p, tally, s.cfg.Thresholds())
	if err := s.messenger.UpdateMessage(ctx, p.VoteMessageRef, content); err != nil {
		s.logEvent("message_update_failed", map[string]interface{}{
			"member_id": memberID,
			"error":     err.Error(),
		})
	}
}
