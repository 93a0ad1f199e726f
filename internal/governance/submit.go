package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/pkg/ledger"
)

// CooldownInfo reports whether a member may resubmit and, if not, the
// remaining wait rendered as whole days plus a ceiling hour component so
// the display never reads zero while time remains.
type CooldownInfo struct {
	CanResubmit    bool  `json:"can_resubmit"`
	DaysRemaining  int   `json:"days_remaining"`
	HoursRemaining int   `json:"hours_remaining"`
	RejectedAtMs   int64 `json:"rejected_at_ms,omitempty"`
}

// SaveDraft creates or replaces the member's draft portfolio content.
// A rejected portfolio whose cooldown has expired flips back to draft
// here; one still inside the cooldown returns ErrCooldownActive.
func (s *Service) SaveDraft(ctx context.Context, memberID, currentRole string, content []string) (*ledger.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil && !ledger.IsNotFound(err) {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	nowMs := s.nowMs()

	if ledger.IsNotFound(err) {
		target, ok := s.cfg.NextRole(currentRole)
		if !ok {
			return nil, fmt.Errorf("role %q: %w", currentRole, ErrNoPromotionPath)
		}
		p = &ledger.Portfolio{
			MemberID:    memberID,
			Status:      ledger.StatusDraft,
			CurrentRole: currentRole,
			TargetRole:  target,
			Content:     content,
			CreatedAtMs: nowMs,
			UpdatedAtMs: nowMs,
		}
	} else {
		switch p.Status {
		case ledger.StatusDraft:
			// editable in place

		case ledger.StatusRejected:
			if err := s.checkCooldown(p); err != nil {
				return nil, err
			}
			p.Status = ledger.StatusDraft

		default:
			return nil, fmt.Errorf("cannot edit portfolio in status %s: %w", p.Status, ErrInvalidTransition)
		}

		// The member's standing may have changed since the portfolio was
		// created (e.g. promoted on a previous cycle), so the ladder
		// position is refreshed on every edit.
		if currentRole != "" && currentRole != p.CurrentRole {
			target, ok := s.cfg.NextRole(currentRole)
			if !ok {
				return nil, fmt.Errorf("role %q: %w", currentRole, ErrNoPromotionPath)
			}
			p.CurrentRole = currentRole
			p.TargetRole = target
		}

		p.Content = content
		p.UpdatedAtMs = nowMs
	}

	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	s.logEvent("draft_saved", map[string]interface{}{
		"member_id": memberID,
		"items":     len(content),
	})

	return p, nil
}

// SubmitPortfolio moves a draft into the review queue. The portfolio
// must carry at least the configured number of proof artifacts and the
// member must be outside any resubmission cooldown.
func (s *Service) SubmitPortfolio(ctx context.Context, memberID string) (*ledger.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	switch p.Status {
	case ledger.StatusDraft, ledger.StatusRejected:
		// submittable
	default:
		return nil, fmt.Errorf("cannot submit portfolio in status %s: %w", p.Status, ErrInvalidTransition)
	}

	if err := s.checkCooldown(p); err != nil {
		return nil, err
	}

	if len(p.Content) < s.cfg.Governance.MinProofLinks {
		return nil, fmt.Errorf("need at least %d proof items, have %d: %w",
			s.cfg.Governance.MinProofLinks, len(p.Content), ErrIncompleteContent)
	}

	p.Status = ledger.StatusSubmitted
	p.SubmittedAtMs = s.nowMs()
	p.UpdatedAtMs = p.SubmittedAtMs

	if err := s.store.PutPortfolio(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to submit portfolio: %w", err)
	}

	s.logEvent("portfolio_submitted", map[string]interface{}{
		"member_id":   memberID,
		"target_role": p.TargetRole,
	})

	return p, nil
}

// DeletePortfolio removes a member's portfolio. Only draft and rejected
// portfolios may be deleted; anything further along is in the hands of
// reviewers or the vote and must run its course.
func (s *Service) DeletePortfolio(ctx context.Context, memberID string) error {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	switch p.Status {
	case ledger.StatusDraft, ledger.StatusRejected:
		// deletable
	default:
		return fmt.Errorf("cannot delete portfolio in status %s: %w", p.Status, ErrInvalidTransition)
	}

	if err := s.store.DeletePortfolio(ctx, memberID); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	s.logEvent("portfolio_deleted", map[string]interface{}{
		"member_id": memberID,
	})

	return nil
}

// Portfolio returns the member's portfolio.
func (s *Service) Portfolio(ctx context.Context, memberID string) (*ledger.Portfolio, error) {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return p, nil
}

// History returns the member's promotion history, oldest first.
func (s *Service) History(ctx context.Context, memberID string) ([]*ledger.PromotionRecord, error) {
	return s.store.History(ctx, memberID)
}

// CooldownStatus reports whether the member may resubmit now. A member
// with no portfolio or no recorded rejection is always clear.
func (s *Service) CooldownStatus(ctx context.Context, memberID string) (CooldownInfo, error) {
	p, err := s.store.GetPortfolio(ctx, memberID)
	if err != nil {
		if ledger.IsNotFound(err) {
			return CooldownInfo{CanResubmit: true}, nil
		}
		return CooldownInfo{}, fmt.Errorf("failed to load portfolio: %w", err)
	}

	if p.RejectedAtMs == 0 {
		return CooldownInfo{CanResubmit: true}, nil
	}

	rejectedAt := time.UnixMilli(p.RejectedAtMs)
	if policy.CanResubmit(rejectedAt, s.now(), s.cfg.Cooldown()) {
		return CooldownInfo{CanResubmit: true, RejectedAtMs: p.RejectedAtMs}, nil
	}

	days, hours := policy.Remaining(rejectedAt, s.now(), s.cfg.Cooldown())
	return CooldownInfo{
		CanResubmit:    false,
		DaysRemaining:  days,
		HoursRemaining: hours,
		RejectedAtMs:   p.RejectedAtMs,
	}, nil
}

// checkCooldown returns ErrCooldownActive when the portfolio carries a
// rejection timestamp still inside the cooldown window.
func (s *Service) checkCooldown(p *ledger.Portfolio) error {
	if p.RejectedAtMs == 0 {
		return nil
	}
	rejectedAt := time.UnixMilli(p.RejectedAtMs)
	if policy.CanResubmit(rejectedAt, s.now(), s.cfg.Cooldown()) {
		return nil
	}
	days, hours := policy.Remaining(rejectedAt, s.now(), s.cfg.Cooldown())
	return fmt.Errorf("%d days %d hours remaining: %w", days, hours, ErrCooldownActive)
}
