package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The content array is
// JSON-encoded into a single hash field. This keeps individual fields
// queryable while allowing structured payloads where needed.

// PortfolioToHash converts a Portfolio struct to a Redis hash format.
// The content array is JSON-encoded.
func PortfolioToHash(p *Portfolio) (map[string]interface{}, error) {
	contentJSON, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}

	hash := map[string]interface{}{
		"member_id":        p.MemberID,
		"status":           string(p.Status),
		"current_role":     p.CurrentRole,
		"target_role":      p.TargetRole,
		"content":          string(contentJSON),
		"submitted_at_ms":  p.SubmittedAtMs,
		"rejected_at_ms":   p.RejectedAtMs,
		"vote_message_ref": p.VoteMessageRef,
		"created_at_ms":    p.CreatedAtMs,
		"updated_at_ms":    p.UpdatedAtMs,
	}

	return hash, nil
}

// HashToPortfolio converts a Redis hash to a Portfolio struct.
func HashToPortfolio(hash map[string]string) (*Portfolio, error) {
	var content []string
	if contentJSON := hash["content"]; contentJSON != "" {
		if err := json.Unmarshal([]byte(contentJSON), &content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal content: %w", err)
		}
	}

	// Ensure we have an empty slice instead of nil for consistency
	if content == nil {
		content = []string{}
	}

	submittedAtMs, _ := strconv.ParseInt(hash["submitted_at_ms"], 10, 64)
	rejectedAtMs, _ := strconv.ParseInt(hash["rejected_at_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	portfolio := &Portfolio{
		MemberID:       hash["member_id"],
		Status:         Status(hash["status"]),
		CurrentRole:    hash["current_role"],
		TargetRole:     hash["target_role"],
		Content:        content,
		SubmittedAtMs:  submittedAtMs,
		RejectedAtMs:   rejectedAtMs,
		VoteMessageRef: hash["vote_message_ref"],
		CreatedAtMs:    createdAtMs,
		UpdatedAtMs:    updatedAtMs,
	}

	return portfolio, nil
}

// VoteEntryToHash converts a VoteEntry struct to a Redis hash format.
// The voter-identity set is deliberately NOT part of this hash: it lives in
// a companion Redis set so ballots can serialize the duplicate check
// against the counter increment in a single transaction.
func VoteEntryToHash(v *VoteEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":           v.ID,
		"member_id":    v.MemberID,
		"yes_count":    v.YesCount,
		"no_count":     v.NoCount,
		"opened_at_ms": v.OpenedAtMs,
		"closed":       strconv.FormatBool(v.Closed),
		"closed_at_ms": v.ClosedAtMs,
		"outcome":      v.Outcome,
	}
}

// HashToVoteEntry converts a Redis hash to a VoteEntry struct.
func HashToVoteEntry(hash map[string]string) (*VoteEntry, error) {
	yesCount, err := strconv.Atoi(hash["yes_count"])
	if err != nil {
		return nil, fmt.Errorf("invalid yes_count field: %w", err)
	}

	noCount, err := strconv.Atoi(hash["no_count"])
	if err != nil {
		return nil, fmt.Errorf("invalid no_count field: %w", err)
	}

	openedAtMs, _ := strconv.ParseInt(hash["opened_at_ms"], 10, 64)
	closedAtMs, _ := strconv.ParseInt(hash["closed_at_ms"], 10, 64)
	closed, _ := strconv.ParseBool(hash["closed"])

	entry := &VoteEntry{
		ID:         hash["id"],
		MemberID:   hash["member_id"],
		YesCount:   yesCount,
		NoCount:    noCount,
		OpenedAtMs: openedAtMs,
		Closed:     closed,
		ClosedAtMs: closedAtMs,
		Outcome:    hash["outcome"],
	}

	return entry, nil
}
