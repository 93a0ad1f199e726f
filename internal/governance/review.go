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

// ReviewAction is a reviewer's verdict on a submitted portfolio.
type ReviewAction string

const (
	// ReviewApprove forwards the portfolio to a parliament vote.
	ReviewApprove ReviewAction = "approve"

	// ReviewReject returns the portfolio to the member with a cooldown.
	ReviewReject ReviewAction = "reject"
)

// Validate checks if the ReviewAction is a valid enum value.
func (a ReviewAction) Validate() error {
	switch a {
	case ReviewApprove, ReviewReject:
		return nil
	default:
		return fmt.Errorf("unknown review action: %q", a)
	}
}

// Review records a reviewer's verdict on a submitted portfolio. The
// caller supplies the reviewer's held role names; authentication of that
// identity happens upstream. On approve a vote is opened and the returned
// entry's messaging handle is persisted on the portfolio before Review
// returns. On reject the entry is nil and the cooldown starts now.
func (s *Service) Review(ctx context.Context, memberID, reviewerID string, reviewerRoles []string, action ReviewAction, reason string) (*ledger.VoteEntry, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	if !s.cfg.IsReviewer(reviewerRoles) {
		return nil, fmt.Errorf("reviewer %s: %w", reviewerID, ErrUnauthorized)
	}

	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	if p.Status != ledger.StatusSubmitted {
		return nil, fmt.Errorf("cannot review portfolio in status %s: %w", p.Status, ErrInvalidTransition)
	}

	if action == ReviewReject {
		return nil, s.rejectSubmission(ctx, p, reviewerID, reason)
	}

	return s.openVote(ctx, p, reviewerID)
}

func (s *Service) openVote(ctx context.Context, p *ledger.Portfolio, reviewerID string) (*ledger.VoteEntry, error) {
	entry := &ledger.VoteEntry{
		ID:         uuid.New().String(),
		MemberID:   p.MemberID,
		OpenedAtMs: s.nowMs(),
	}

	// The vote message goes out first: if the transport fails there is
	// nothing to roll back and the reviewer simply retries the approve.
	content := render.VoteRequest(p, policy.Tally{}, s.cfg.Thresholds())
	handle, err := s.messenger.SendVoteRequest(ctx, p.MemberID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to send vote request: %w", err)
	}

	if err := s.store.OpenVote(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to open vote: %w", err)
	}

	p.Status = ledger.StatusPendingVote
	p.VoteMessageRef = handle
	p.UpdatedAtMs = s.nowMs()
	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to record pending vote: %w", err)
	}

	s.logEvent("vote_opened", map[string]interface{}{
		"member_id":   p.MemberID,
		"vote_id":     entry.ID,
		"reviewer_id": reviewerID,
	})

	return entry, nil
}

func (s *Service) rejectSubmission(ctx context.Context, p *ledger.Portfolio, reviewerID, reason string) error {
	p.Status = ledger.StatusRejected
	p.RejectedAtMs = s.nowMs()
	p.UpdatedAtMs = p.RejectedAtMs
	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return fmt.Errorf("failed to record rejection: %w", err)
	}

	cooldownEnd := time.UnixMilli(p.RejectedAtMs).Add(s.cfg.Cooldown())
	if err := s.notifier.Notify(ctx, p.MemberID, render.ReviewRejection(reason, cooldownEnd)); err != nil {
		// Notification is best-effort; the rejection itself is recorded.
		s.logEvent("notify_failed", map[string]interface{}{
			"member_id": p.MemberID,
			"error":     err.Error(),
		})
	}

	s.logEvent("review_rejected", map[string]interface{}{
		"member_id":   p.MemberID,
		"reviewer_id": reviewerID,
	})

	return nil
}
