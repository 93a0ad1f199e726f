// Package policy holds the pure decision functions of the governance
// protocol: vote tally evaluation and the resubmission cooldown. Nothing in
// this package performs I/O; callers apply state first and evaluate the
// resulting snapshot (evaluate-after-apply).
package policy

import "fmt"

// Outcome is the tally evaluator's decision for a vote snapshot.
type Outcome string

const (
	// OutcomeContinue means voting stays open: either quorum has not been
	// reached, or quorum is met but neither threshold is crossed. The
	// protocol never force-closes on quorum alone.
	OutcomeContinue Outcome = "continue"

	// OutcomeApprove means the approval threshold was reached.
	OutcomeApprove Outcome = "approve"

	// OutcomeReject means the rejection threshold was exceeded.
	OutcomeReject Outcome = "reject"
)

// Decisive reports whether the outcome closes the vote.
func (o Outcome) Decisive() bool {
	return o == OutcomeApprove || o == OutcomeReject
}

// Tally is a snapshot of a vote's counters.
type Tally struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// Total returns the number of accepted ballots in the snapshot.
func (t Tally) Total() int {
	return t.Yes + t.No
}

// Thresholds parameterizes tally evaluation. Percentages are integers so
// the threshold comparisons are exact; a yes-rate of exactly ApprovePct
// must approve, never continue.
type Thresholds struct {
	MinQuorum  int // Minimum ballots before any decision
	ApprovePct int // Approve when yes-rate >= this percentage
	RejectPct  int // Reject when no-rate > this percentage (strict)
}

// DefaultThresholds returns the reference protocol values: quorum 5,
// approve at >= 60%, reject at > 40%.
func DefaultThresholds() Thresholds {
	return Thresholds{MinQuorum: 5, ApprovePct: 60, RejectPct: 40}
}

// Validate checks threshold sanity.
func (th Thresholds) Validate() error {
	if th.MinQuorum < 1 {
		return fmt.Errorf("min quorum must be >= 1, got %d", th.MinQuorum)
	}
	if th.ApprovePct < 1 || th.ApprovePct > 100 {
		return fmt.Errorf("approve percentage must be in 1..100, got %d", th.ApprovePct)
	}
	if th.RejectPct < 0 || th.RejectPct >= 100 {
		return fmt.Errorf("reject percentage must be in 0..99, got %d", th.RejectPct)
	}
	return nil
}

// Evaluate decides whether a tally snapshot closes the vote.
//
// Below quorum the vote always continues. At or above quorum the yes-rate
// is compared against ApprovePct inclusively (>=) and the no-rate against
// RejectPct strictly (>). The asymmetry is deliberate and load-bearing: at
// exactly 60/40 with the reference thresholds the approval comparison wins,
// and a split that crosses neither bound leaves the vote open for more
// ballots.
//
// Comparisons are done in integer cross-multiplied form so an exact
// boundary (e.g. 3 yes of 5) never falls to floating-point error.
func Evaluate(t Tally, th Thresholds) Outcome {
	total := t.Total()
	if total < th.MinQuorum {
		return OutcomeContinue
	}

	if t.Yes*100 >= total*th.ApprovePct {
		return OutcomeApprove
	}

	if t.No*100 > total*th.RejectPct {
		return OutcomeReject
	}

	return OutcomeContinue
}
