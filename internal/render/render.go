// Package render formats governance state into the human-readable messages
// sent through the messaging transport. Every function is a pure projection
// of ledger state: rendered text is never parsed back into state, so the
// displayed message can always be rebuilt from the ledger alone.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/curiahq/curia/internal/policy"
	"github.com/curiahq/curia/pkg/ledger"
)

// VoteRequest renders the parliament message opening a promotion vote.
func VoteRequest(p *ledger.Portfolio, tally policy.Tally, th policy.Thresholds) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Promotion vote: <@%s>**\n", p.MemberID)
	fmt.Fprintf(&b, "%s → %s\n\n", p.CurrentRole, p.TargetRole)

	if len(p.Content) > 0 {
		b.WriteString("**Portfolio**\n")
		for _, item := range p.Content {
			fmt.Fprintf(&b, "• %s\n", item)
		}
		b.WriteString("\n")
	}

	b.WriteString(tallyLine(tally))
	fmt.Fprintf(&b, "\nQuorum %d · approve at %d%% · reject above %d%%\n",
		th.MinQuorum, th.ApprovePct, th.RejectPct)

	return b.String()
}

// VoteProgress re-renders an open vote message after a ballot. Identical
// layout to VoteRequest with the current tally, so the bridge can replace
// the message body wholesale.
func VoteProgress(p *ledger.Portfolio, tally policy.Tally, th policy.Thresholds) string {
	return VoteRequest(p, tally, th)
}

// VoteClosed renders the final state of a closed vote message.
func VoteClosed(memberID string, tally policy.Tally, outcome policy.Outcome) string {
	var b strings.Builder

	verdict := "rejected"
	if outcome == policy.OutcomeApprove {
		verdict = "approved"
	}

	fmt.Fprintf(&b, "**Promotion vote: <@%s>** — %s\n", memberID, verdict)
	b.WriteString(tallyLine(tally))
	b.WriteString("\nVoting is closed.\n")

	return b.String()
}

// Congratulations renders the direct message sent to a promoted member.
func Congratulations(p *ledger.Portfolio, tally policy.Tally) string {
	return fmt.Sprintf(
		"Congratulations! Parliament approved your promotion to **%s** (%d yes / %d no). Your new role has been granted.",
		p.TargetRole, tally.Yes, tally.No)
}

// VoteRejection renders the direct message sent to a member whose
// portfolio was voted down, including when they may resubmit.
func VoteRejection(tally policy.Tally, cooldownEnd time.Time) string {
	return fmt.Sprintf(
		"Parliament did not approve your promotion this time (%d yes / %d no). You may resubmit your portfolio after %s.",
		tally.Yes, tally.No, cooldownEnd.UTC().Format("2 Jan 2006 15:04 MST"))
}

// ReviewRejection renders the direct message sent when a reviewer rejects
// a portfolio before it reaches a vote.
func ReviewRejection(reason string, cooldownEnd time.Time) string {
	var b strings.Builder

	b.WriteString("Your portfolio was not accepted for a parliament vote.")
	if reason != "" {
		fmt.Fprintf(&b, " Reviewer note: %s", reason)
	}
	fmt.Fprintf(&b, " You may resubmit after %s.", cooldownEnd.UTC().Format("2 Jan 2006 15:04 MST"))

	return b.String()
}

// CooldownStatus renders the remaining wait for user-facing display.
func CooldownStatus(days, hours int) string {
	if days == 0 && hours == 0 {
		return "You may resubmit your portfolio now."
	}
	return fmt.Sprintf("Cooldown active: %d days %d hours remaining.", days, hours)
}

func tallyLine(tally policy.Tally) string {
	return fmt.Sprintf("✅ %d  ·  ❌ %d  ·  %d ballots\n", tally.Yes, tally.No, tally.Total())
}
