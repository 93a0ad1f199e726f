// Package ledger provides type-safe Go definitions and Redis schema patterns
// for the Curia governance ledger.
//
// # Overview
//
// The ledger is the system of record shared by all Curia components (the
// governance daemon, the chat bot bridge, the operator CLI). It holds two
// kinds of durable state: Portfolio records, which track each member's
// promotion application through its lifecycle, and VoteEntry records, which
// carry the live tally of an open parliament vote together with the set of
// identities that have already voted.
//
// # Core Concepts
//
// A Portfolio is keyed by member identity - each member has at most one.
// Its status is a closed enum (draft, submitted, pending_vote, approved,
// rejected, promoted) and every transition is guarded by the governance
// engine; the ledger itself only enforces structural validity.
//
// A VoteEntry is created when a reviewer approves a portfolio into voting.
// Ballots mutate its counters through an optimistic Redis transaction that
// serializes the duplicate-check against the increment, so a voter identity
// is never double-counted even under concurrent submission. Once closed, an
// entry is immutable.
//
// A PromotionRecord is an append-only history entry written exactly once
// per successful promotion.
//
// # Multi-Community Support
//
// All Redis keys and Pub/Sub channels are namespaced by community name so
// several communities can safely share a single Redis server. Each community
// has complete isolation of its data and events.
//
// # Redis Schema
//
// All keys follow the pattern: curia:{community}:{entity}:{id}
//
//	Portfolios:   curia:{community}:portfolio:{member_id}
//	Vote entries: curia:{community}:vote:{vote_id}
//	Voter sets:   curia:{community}:vote:{vote_id}:voters
//	Member index: curia:{community}:vote_by_member:{member_id}
//	History:      curia:{community}:history:{member_id}
//	Open votes:   curia:{community}:open_votes
//
// Pub/Sub channels: curia:{community}:portfolio_events,
// curia:{community}:vote_events and curia:{community}:outbox (rendered
// message requests consumed by the bot bridge).
package ledger
