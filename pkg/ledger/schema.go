package ledger

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by community name to
// enable multiple communities to safely coexist on a single Redis server.
//
// Key pattern: curia:{community}:{entity}:{id}
// Channel pattern: curia:{community}:{event_type}_events

// PortfolioKey returns the Redis key for a member's portfolio.
// Pattern: curia:{community}:portfolio:{member_id}
func PortfolioKey(community, memberID string) string {
	return fmt.Sprintf("curia:%s:portfolio:%s", community, memberID)
}

// VoteKey returns the Redis key for a vote entry.
// Pattern: curia:{community}:vote:{vote_id}
func VoteKey(community, voteID string) string {
	return fmt.Sprintf("curia:%s:vote:%s", community, voteID)
}

// VoteVotersKey returns the Redis key for a vote's voter-identity set.
// Membership in this set is the sole duplicate-ballot guard.
// Pattern: curia:{community}:vote:{vote_id}:voters
func VoteVotersKey(community, voteID string) string {
	return fmt.Sprintf("curia:%s:vote:%s:voters", community, voteID)
}

// VoteFinalizeKey returns the Redis key used as the finalizer's
// exactly-once claim (SETNX). The first finalizer invocation to set this
// key performs the terminal side effects; everyone else no-ops.
// Pattern: curia:{community}:vote:{vote_id}:finalized
func VoteFinalizeKey(community, voteID string) string {
	return fmt.Sprintf("curia:%s:vote:%s:finalized", community, voteID)
}

// VoteByMemberKey returns the Redis key for the member->vote index.
// Points at the most recent vote entry for the member, open or closed.
// Pattern: curia:{community}:vote_by_member:{member_id}
func VoteByMemberKey(community, memberID string) string {
	return fmt.Sprintf("curia:%s:vote_by_member:%s", community, memberID)
}

// HistoryKey returns the Redis key for a member's promotion history list.
// Pattern: curia:{community}:history:{member_id}
func HistoryKey(community, memberID string) string {
	return fmt.Sprintf("curia:%s:history:%s", community, memberID)
}

// OpenVotesKey returns the Redis key of the set holding all open vote IDs.
// Pattern: curia:{community}:open_votes
func OpenVotesKey(community string) string {
	return fmt.Sprintf("curia:%s:open_votes", community)
}

// PortfolioEventsChannel returns the Pub/Sub channel for portfolio events.
// Pattern: curia:{community}:portfolio_events
func PortfolioEventsChannel(community string) string {
	return fmt.Sprintf("curia:%s:portfolio_events", community)
}

// VoteEventsChannel returns the Pub/Sub channel for vote events.
// Pattern: curia:{community}:vote_events
func VoteEventsChannel(community string) string {
	return fmt.Sprintf("curia:%s:vote_events", community)
}

// OutboxChannel returns the Pub/Sub channel carrying rendered message
// requests for the chat bot bridge (vote requests, tally updates and
// direct notifications).
// Pattern: curia:{community}:outbox
func OutboxChannel(community string) string {
	return fmt.Sprintf("curia:%s:outbox", community)
}
