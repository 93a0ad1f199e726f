package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Portfolio. The set is closed: every
// transition handler switches exhaustively so an unknown status is always an
// error, never silently passed through.
type Status string

const (
	// StatusDraft means the member is still assembling the portfolio.
	StatusDraft Status = "draft"

	// StatusSubmitted means the portfolio is awaiting human review.
	StatusSubmitted Status = "submitted"

	// StatusPendingVote means a reviewer approved the portfolio and a
	// parliament vote is open for it.
	StatusPendingVote Status = "pending_vote"

	// StatusApproved means the vote passed but the role grant has not yet
	// succeeded. This is a recoverable intermediate state.
	StatusApproved Status = "approved"

	// StatusRejected means either a reviewer or the vote rejected the
	// portfolio. The member may resubmit after the cooldown expires.
	StatusRejected Status = "rejected"

	// StatusPromoted means the role grant succeeded. Terminal.
	StatusPromoted Status = "promoted"
)

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPendingVote,
		StatusApproved, StatusRejected, StatusPromoted:
		return nil
	default:
		return fmt.Errorf("unknown portfolio status: %q", s)
	}
}

// Open reports whether the status is one of the non-terminal states in
// which the member still has an application in flight.
func (s Status) Open() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPendingVote:
		return true
	default:
		return false
	}
}

// Portfolio is a member's promotion application. Exactly one exists per
// member identity; mutation rights shift with status (member while draft,
// reviewer while submitted, finalizer while pending_vote and beyond).
type Portfolio struct {
	MemberID       string   `json:"member_id"`        // Chat-platform identity of the owner
	Status         Status   `json:"status"`           // Current lifecycle state
	CurrentRole    string   `json:"current_role"`     // Semantic role name held at submission time
	TargetRole     string   `json:"target_role"`      // Semantic role name being applied for
	Content        []string `json:"content"`          // Proof links and free-text evidence
	SubmittedAtMs  int64    `json:"submitted_at_ms"`  // Unix ms of the most recent submission, 0 if never
	RejectedAtMs   int64    `json:"rejected_at_ms"`   // Unix ms of the most recent rejection, 0 if never
	VoteMessageRef string   `json:"vote_message_ref"` // Messaging handle of the open vote, set iff pending_vote
	CreatedAtMs    int64    `json:"created_at_ms"`    // Unix ms when the portfolio was first created
	UpdatedAtMs    int64    `json:"updated_at_ms"`    // Unix ms of the last mutation
}

// Validate checks if the Portfolio has valid field values, including the
// structural invariant that a vote message ref is present if and only if
// the portfolio is pending a vote.
func (p *Portfolio) Validate() error {
	if p.MemberID == "" {
		return fmt.Errorf("member ID cannot be empty")
	}

	if err := p.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	if p.CurrentRole == "" {
		return fmt.Errorf("current_role cannot be empty")
	}

	if p.TargetRole == "" {
		return fmt.Errorf("target_role cannot be empty")
	}

	hasRef := p.VoteMessageRef != ""
	if hasRef != (p.Status == StatusPendingVote) {
		return fmt.Errorf("vote_message_ref must be set iff status is pending_vote (status=%s, ref=%q)",
			p.Status, p.VoteMessageRef)
	}

	return nil
}

// VoteEntry is the open-vote ledger for one nomination: the tally counters
// plus bookkeeping. The set of voter identities lives in a companion Redis
// set (see VoteVotersKey) so the duplicate check can be serialized against
// the counter increment.
type VoteEntry struct {
	ID         string `json:"id"`           // UUID of this vote entry
	MemberID   string `json:"member_id"`    // Owner of the portfolio being voted on
	YesCount   int    `json:"yes_count"`    // Accepted yes ballots
	NoCount    int    `json:"no_count"`     // Accepted no ballots
	OpenedAtMs int64  `json:"opened_at_ms"` // Unix ms when the vote opened
	Closed     bool   `json:"closed"`       // True once finalized; entry is immutable after
	ClosedAtMs int64  `json:"closed_at_ms"` // Unix ms when the vote closed, 0 while open
	Outcome    string `json:"outcome"`      // "approved" or "rejected" once closed, "" while open
}

// Validate checks if the VoteEntry has valid field values.
func (v *VoteEntry) Validate() error {
	if !isValidUUID(v.ID) {
		return fmt.Errorf("invalid vote entry ID: not a valid UUID")
	}

	if v.MemberID == "" {
		return fmt.Errorf("member ID cannot be empty")
	}

	if v.YesCount < 0 || v.NoCount < 0 {
		return fmt.Errorf("tally counts cannot be negative (yes=%d, no=%d)", v.YesCount, v.NoCount)
	}

	if v.Closed && v.Outcome == "" {
		return fmt.Errorf("closed vote entry must carry an outcome")
	}

	return nil
}

// Choice is a single ballot's direction.
type Choice string

const (
	// ChoiceYes supports the promotion.
	ChoiceYes Choice = "yes"

	// ChoiceNo opposes the promotion.
	ChoiceNo Choice = "no"
)

// Validate checks if the Choice is a valid enum value.
func (c Choice) Validate() error {
	switch c {
	case ChoiceYes, ChoiceNo:
		return nil
	default:
		return fmt.Errorf("unknown ballot choice: %q", c)
	}
}

// PromotionRecord is one append-only history entry, written exactly once by
// the finalizer when a promotion completes. Immutable once written.
type PromotionRecord struct {
	ID           string `json:"id"`             // UUID of this record
	MemberID     string `json:"member_id"`      // Promoted member
	FromRole     string `json:"from_role"`      // Role held before promotion
	ToRole       string `json:"to_role"`        // Role granted by promotion
	YesCount     int    `json:"yes_count"`      // Final tally
	NoCount      int    `json:"no_count"`       // Final tally
	PromotedAtMs int64  `json:"promoted_at_ms"` // Unix ms when the role grant succeeded
}

// Validate checks if the PromotionRecord has valid field values.
func (r *PromotionRecord) Validate() error {
	if !isValidUUID(r.ID) {
		return fmt.Errorf("invalid promotion record ID: not a valid UUID")
	}

	if r.MemberID == "" {
		return fmt.Errorf("member ID cannot be empty")
	}

	if r.FromRole == "" || r.ToRole == "" {
		return fmt.Errorf("from_role and to_role cannot be empty")
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
