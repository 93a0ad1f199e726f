package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/internal/render"
	"github.com/curiahq/curia/pkg/ledger"
)

// Finalize closes the member's vote with the given decisive outcome and
// applies the resulting portfolio transition and side effects.
//
// Exactly-once semantics: the first caller to claim finalization performs
// the side effects; every other concurrent or repeated call is a no-op.
// The closed flag on the ledger entry is written last, so an entry that
// reads closed has had its transition fully applied.
//
// An approved vote whose role grant fails leaves the portfolio in
// approved: the vote still closes, and RetryPromotion (or the startup
// recovery pass) completes the grant later.
func (s *Service) Finalize(ctx context.Context, memberID string, outcome policy.Outcome, tally policy.Tally) error {
	if !outcome.Decisive() {
		return fmt.Errorf("cannot finalize with outcome %s", outcome)
	}

	entry, err := s.store.GetVoteByMember(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load vote: %w", err)
	}
	if entry.Closed {
		return nil
	}

	won, err := s.store.ClaimFinalize(ctx, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to claim finalization: %w", err)
	}
	if !won {
		// Another finalizer holds the claim and performs the side effects.
		return nil
	}

	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	handle := p.VoteMessageRef

	var grantErr error
	switch outcome {
	case policy.OutcomeApprove:
		grantErr = s.finalizeApprove(ctx, p, tally)
	case policy.OutcomeReject:
		if err := s.finalizeReject(ctx, p, tally); err != nil {
			return err
		}
	}

	if handle != "" {
		content := render.VoteClosed(memberID, tally, outcome)
		if err := s.messenger.UpdateMessage(ctx, handle, content); err != nil {
			s.logEvent("message_update_failed", map[string]interface{}{
				"member_id": memberID,
				"error":     err.Error(),
			})
		}
	}

	// Closing the entry is the final step: a closed entry means the
	// transition above is fully recorded.
	if err := s.store.CloseVote(ctx, entry.ID, finalOutcome(outcome), s.nowMs()); err != nil {
		return fmt.Errorf("failed to close vote: %w", err)
	}

	s.logEvent("vote_finalized", map[string]interface{}{
		"member_id": memberID,
		"vote_id":   entry.ID,
		"outcome":   string(outcome),
		"yes":       tally.Yes,
		"no":        tally.No,
	})

	if grantErr != nil {
		return fmt.Errorf("vote closed but role grant failed: %w", grantErr)
	}
	return nil
}

// finalizeApprove moves the portfolio to approved, attempts the role
// grant, and on success records the promotion. A grant failure is
// returned after the approved status is durably recorded.
func (s *Service) finalizeApprove(ctx context.Context, p *ledger.Portfolio, tally policy.Tally) error {
	p.Status = ledger.StatusApproved
	p.VoteMessageRef = ""
	p.UpdatedAtMs = s.nowMs()
	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return fmt.Errorf("failed to record approval: %w", err)
	}

	return s.completePromotion(ctx, p, tally)
}

// completePromotion grants the target role and records the terminal
// promoted state. Shared by the finalizer and RetryPromotion.
func (s *Service) completePromotion(ctx context.Context, p *ledger.Portfolio, tally policy.Tally) error {
	roleID, ok := s.cfg.RoleID(p.TargetRole)
	if !ok {
		return fmt.Errorf("target role %q has no platform role ID", p.TargetRole)
	}

	if err := s.granter.GrantRole(ctx, p.MemberID, roleID); err != nil {
		return fmt.Errorf("failed to grant role %s: %w", p.TargetRole, err)
	}

	nowMs := s.nowMs()
	fromRole := p.CurrentRole

	p.Status = ledger.StatusPromoted
	p.CurrentRole = p.TargetRole
	p.UpdatedAtMs = nowMs
	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return fmt.Errorf("failed to record promotion: %w", err)
	}

	rec := &ledger.PromotionRecord{
		ID:           uuid.New().String(),
		MemberID:     p.MemberID,
		FromRole:     fromRole,
		ToRole:       p.CurrentRole,
		YesCount:     tally.Yes,
		NoCount:      tally.No,
		PromotedAtMs: nowMs,
	}
	if err := s.store.AppendHistory(ctx, rec); err != nil {
		return fmt.Errorf("failed to append promotion history: %w", err)
	}

	if err := s.notifier.Notify(ctx, p.MemberID, render.Congratulations(p, tally)); err != nil {
		s.logEvent("notify_failed", map[string]interface{}{
			"member_id": p.MemberID,
			"error":     err.Error(),
		})
	}

	s.logEvent("member_promoted", map[string]interface{}{
		"member_id": p.MemberID,
		"from_role": fromRole,
		"to_role":   p.CurrentRole,
	})

	return nil
}

func (s *Service) finalizeReject(ctx context.Context, p *ledger.Portfolio, tally policy.Tally) error {
	p.Status = ledger.StatusRejected
	p.RejectedAtMs = s.nowMs()
	p.UpdatedAtMs = p.RejectedAtMs
	p.VoteMessageRef = ""
	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return fmt.Errorf("failed to record rejection: %w", err)
	}

	cooldownEnd := time.UnixMilli(p.RejectedAtMs).Add(s.cfg.Cooldown())
	if err := s.notifier.Notify(ctx, p.MemberID, render.VoteRejection(tally, cooldownEnd)); err != nil {
		s.logEvent("notify_failed", map[string]interface{}{
			"member_id": p.MemberID,
			"error":     err.Error(),
		})
	}

	return nil
}

// RetryPromotion re-attempts the role grant for a portfolio stuck in
// approved after a grant failure. Also closes the member's vote entry if
// the original finalizer died before closing it.
func (s *Service) RetryPromotion(ctx context.Context, memberID string) error {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	if p.Status != ledger.StatusApproved {
		return fmt.Errorf("cannot retry promotion in status %s: %w", p.Status, ErrInvalidTransition)
	}

	tally := policy.Tally{}
	entry, err := s.store.GetVoteByMember(ctx, memberID)
	if err == nil {
		tally = policy.Tally{Yes: entry.YesCount, No: entry.NoCount}
	} else if !ledger.IsNotFound(err) {
		return fmt.Errorf("failed to load vote: %w", err)
	}

	if err := s.completePromotion(ctx, p, tally); err != nil {
		return err
	}

	if entry != nil && !entry.Closed {
		if err := s.store.CloseVote(ctx, entry.ID, "approved", s.nowMs()); err != nil {
			return fmt.Errorf("failed to close vote: %w", err)
		}
	}

	return nil
}

// ForceClose lets an operator end a vote that will never reach a
// decisive tally on its own. The current counts are recorded and the
// normal finalization path applies the outcome.
func (s *Service) ForceClose(ctx context.Context, memberID string, outcome policy.Outcome) (policy.Tally, error) {
	if !outcome.Decisive() {
		return policy.Tally{}, fmt.Errorf("force close requires a decisive outcome, got %s", outcome)
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

	tally := policy.Tally{Yes: entry.YesCount, No: entry.NoCount}

	s.logEvent("vote_force_closed", map[string]interface{}{
		"member_id": memberID,
		"vote_id":   entry.ID,
		"outcome":   string(outcome),
	})

	if err := s.Finalize(ctx, memberID, outcome, tally); err != nil {
		return tally, err
	}
	return tally, nil
}

// finalOutcome maps a decisive policy outcome to the ledger's recorded
// outcome string.
func finalOutcome(o policy.Outcome) string {
	if o == policy.OutcomeApprove {
		return "approved"
	}
	return "rejected"
}
