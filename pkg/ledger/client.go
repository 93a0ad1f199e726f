package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors surfaced by ballot casting. These are the validation
// errors of the voting protocol: recovered locally, never retried.
var (
	// ErrDuplicateVote means the voter identity has already cast a ballot
	// on this vote entry. The tally is unchanged.
	ErrDuplicateVote = errors.New("voter has already cast a ballot on this vote")

	// ErrVotingClosed means the vote entry was already finalized. The tally
	// is unchanged.
	ErrVotingClosed = errors.New("vote is closed")
)

// castRetries bounds the optimistic-transaction retry loop in CastBallot.
// Contention on a single vote entry is human-click scale, so conflicts are
// rare and shallow.
const castRetries = 16

// Client provides community-scoped Redis operations for the governance
// ledger. All keys and channels are automatically namespaced with the
// community name. The client is thread-safe and can be used concurrently
// from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	community string
}

// NewClient creates a new ledger client for the specified community.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - community: community identifier (must not be empty)
//
// Returns an error if community is empty.
func NewClient(redisOpts *redis.Options, community string) (*Client, error) {
	if community == "" {
		return nil, fmt.Errorf("community name cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		community: community,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Community returns the community name this client is scoped to.
func (c *Client) Community() string {
	return c.community
}

// PutPortfolio writes a portfolio to Redis and publishes a portfolio event.
// Validates the portfolio before writing; the write is a full replacement.
// This method is idempotent - writing the same portfolio twice is safe.
func (c *Client) PutPortfolio(ctx context.Context, p *Portfolio) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid portfolio: %w", err)
	}

	hash, err := PortfolioToHash(p)
	if err != nil {
		return fmt.Errorf("failed to serialize portfolio: %w", err)
	}

	key := PortfolioKey(c.community, p.MemberID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write portfolio to Redis: %w", err)
	}

	portfolioJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio for event: %w", err)
	}

	channel := PortfolioEventsChannel(c.community)
	if err := c.rdb.Publish(ctx, channel, portfolioJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish portfolio event: %w", err)
	}

	return nil
}

// GetPortfolio retrieves a member's portfolio.
// Returns (nil, redis.Nil) if the portfolio doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetPortfolio(ctx context.Context, memberID string) (*Portfolio, error) {
	key := PortfolioKey(c.community, memberID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	portfolio, err := HashToPortfolio(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize portfolio: %w", err)
	}

	return portfolio, nil
}

// DeletePortfolio removes a member's portfolio record. Status guarding is
// the governance engine's responsibility; the ledger deletes unconditionally.
func (c *Client) DeletePortfolio(ctx context.Context, memberID string) error {
	key := PortfolioKey(c.community, memberID)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete portfolio from Redis: %w", err)
	}
	return nil
}

// ListPortfolios scans all portfolios in the community. Used by the
// startup recovery pass and the operator CLI; not a hot path.
func (c *Client) ListPortfolios(ctx context.Context) ([]*Portfolio, error) {
	pattern := PortfolioKey(c.community, "*")

	var portfolios []*Portfolio
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		hashData, err := c.rdb.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read portfolio %s: %w", iter.Val(), err)
		}
		if len(hashData) == 0 {
			continue
		}

		portfolio, err := HashToPortfolio(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize portfolio %s: %w", iter.Val(), err)
		}
		portfolios = append(portfolios, portfolio)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan portfolios: %w", err)
	}

	return portfolios, nil
}

// OpenVote writes a new vote entry, indexes it by member and registers it
// in the open-votes set, then publishes a vote event. The entry must not be
// closed and must start with zero counts.
func (c *Client) OpenVote(ctx context.Context, entry *VoteEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid vote entry: %w", err)
	}

	if entry.Closed || entry.YesCount != 0 || entry.NoCount != 0 {
		return fmt.Errorf("vote entry must open unclosed with an empty tally")
	}

	hash := VoteEntryToHash(entry)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, VoteKey(c.community, entry.ID), hash)
	pipe.Set(ctx, VoteByMemberKey(c.community, entry.MemberID), entry.ID, 0)
	pipe.SAdd(ctx, OpenVotesKey(c.community), entry.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to open vote in Redis: %w", err)
	}

	return c.publishVoteEvent(ctx, VoteEventOpened, entry)
}

// GetVote retrieves a vote entry by ID.
// Returns (nil, redis.Nil) if the entry doesn't exist.
func (c *Client) GetVote(ctx context.Context, voteID string) (*VoteEntry, error) {
	key := VoteKey(c.community, voteID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read vote entry from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	entry, err := HashToVoteEntry(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize vote entry: %w", err)
	}

	return entry, nil
}

// GetVoteByMember retrieves the most recent vote entry for a member, open
// or closed. Returns (nil, redis.Nil) if the member never went to a vote.
func (c *Client) GetVoteByMember(ctx context.Context, memberID string) (*VoteEntry, error) {
	voteID, err := c.rdb.Get(ctx, VoteByMemberKey(c.community, memberID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to resolve vote for member %s: %w", memberID, err)
	}

	return c.GetVote(ctx, voteID)
}

// CastBallot records one ballot on an open vote. The duplicate check and
// the counter increment are serialized through an optimistic WATCH/MULTI
// transaction on the entry and its voter set, so an identity is never
// double-counted even under concurrent submission. Returns the tally
// snapshot exactly as it stood when this ballot was applied
// (evaluate-after-apply: both counters are read inside the transaction).
//
// Returns ErrVotingClosed if the entry is closed and ErrDuplicateVote if
// the voter already cast a ballot; in both cases the tally is unchanged.
func (c *Client) CastBallot(ctx context.Context, voteID, voterID string, choice Choice) (yes int, no int, err error) {
	if err := choice.Validate(); err != nil {
		return 0, 0, fmt.Errorf("invalid ballot: %w", err)
	}
	if voterID == "" {
		return 0, 0, fmt.Errorf("voter ID cannot be empty")
	}

	entryKey := VoteKey(c.community, voteID)
	votersKey := VoteVotersKey(c.community, voteID)

	incrField, readField := "yes_count", "no_count"
	if choice == ChoiceNo {
		incrField, readField = "no_count", "yes_count"
	}

	var incremented *redis.IntCmd
	var other *redis.StringCmd

	txn := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, entryKey).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return redis.Nil
		}

		closed, err := tx.HGet(ctx, entryKey, "closed").Result()
		if err != nil {
			return err
		}
		if closed == "true" {
			return ErrVotingClosed
		}

		dup, err := tx.SIsMember(ctx, votersKey, voterID).Result()
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateVote
		}

		// Apply-and-read atomically: the returned snapshot reflects exactly
		// the ballots serialized up to and including this one.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, votersKey, voterID)
			incremented = pipe.HIncrBy(ctx, entryKey, incrField, 1)
			other = pipe.HGet(ctx, entryKey, readField)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < castRetries; attempt++ {
		err := c.rdb.Watch(ctx, txn, entryKey, votersKey)
		if errors.Is(err, redis.TxFailedErr) {
			// Another ballot landed first; re-read and retry
			continue
		}
		if err != nil {
			return 0, 0, err
		}

		applied := int(incremented.Val())
		otherCount, convErr := other.Int()
		if convErr != nil {
			return 0, 0, fmt.Errorf("failed to read tally counter: %w", convErr)
		}

		if choice == ChoiceYes {
			yes, no = applied, otherCount
		} else {
			yes, no = otherCount, applied
		}

		c.publishBallotEvent(ctx, voteID, yes, no)
		return yes, no, nil
	}

	return 0, 0, fmt.Errorf("failed to cast ballot on vote %s: transaction contention exceeded %d retries", voteID, castRetries)
}

// VoterCount returns the size of a vote's voter-identity set.
func (c *Client) VoterCount(ctx context.Context, voteID string) (int, error) {
	n, err := c.rdb.SCard(ctx, VoteVotersKey(c.community, voteID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return int(n), nil
}

// ClaimFinalize attempts to acquire the exactly-once finalization claim for
// a vote. Returns true if this caller won the claim and must perform the
// terminal side effects; false if another finalizer already did.
func (c *Client) ClaimFinalize(ctx context.Context, voteID string) (bool, error) {
	key := VoteFinalizeKey(c.community, voteID)
	won, err := c.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire finalize claim: %w", err)
	}
	return won, nil
}

// DropFinalizeClaim releases a finalization claim. Only the startup
// recovery pass uses this, when a previous process died between claiming
// finalization and closing the vote.
func (c *Client) DropFinalizeClaim(ctx context.Context, voteID string) error {
	if err := c.rdb.Del(ctx, VoteFinalizeKey(c.community, voteID)).Err(); err != nil {
		return fmt.Errorf("failed to drop finalize claim: %w", err)
	}
	return nil
}

// CloseVote marks a vote entry closed with its outcome and removes it from
// the open-votes set. Called by the finalizer as its last step so the
// closed flag guards all earlier side effects. Idempotent.
func (c *Client) CloseVote(ctx context.Context, voteID, outcome string, closedAtMs int64) error {
	entryKey := VoteKey(c.community, voteID)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, entryKey, map[string]interface{}{
		"closed":       "true",
		"closed_at_ms": closedAtMs,
		"outcome":      outcome,
	})
	pipe.SRem(ctx, OpenVotesKey(c.community), voteID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to close vote in Redis: %w", err)
	}

	entry, err := c.GetVote(ctx, voteID)
	if err != nil {
		return fmt.Errorf("failed to re-read closed vote: %w", err)
	}

	return c.publishVoteEvent(ctx, VoteEventClosed, entry)
}

// ListOpenVotes retrieves all currently open vote entries.
func (c *Client) ListOpenVotes(ctx context.Context) ([]*VoteEntry, error) {
	voteIDs, err := c.rdb.SMembers(ctx, OpenVotesKey(c.community)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read open-votes set: %w", err)
	}

	entries := make([]*VoteEntry, 0, len(voteIDs))
	for _, voteID := range voteIDs {
		entry, err := c.GetVote(ctx, voteID)
		if err != nil {
			if IsNotFound(err) {
				// Entry removed between SMEMBERS and HGETALL; skip
				continue
			}
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// AppendHistory appends a promotion record to the member's history list.
// The list is append-only: records are never updated or removed.
func (c *Client) AppendHistory(ctx context.Context, rec *PromotionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid promotion record: %w", err)
	}

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal promotion record: %w", err)
	}

	key := HistoryKey(c.community, rec.MemberID)
	if err := c.rdb.RPush(ctx, key, recJSON).Err(); err != nil {
		return fmt.Errorf("failed to append promotion record: %w", err)
	}

	return nil
}

// History retrieves a member's promotion records, oldest first.
// Returns an empty slice if the member has none (not an error).
func (c *Client) History(ctx context.Context, memberID string) ([]*PromotionRecord, error) {
	key := HistoryKey(c.community, memberID)

	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read promotion history: %w", err)
	}

	records := make([]*PromotionRecord, 0, len(raw))
	for _, item := range raw {
		var rec PromotionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal promotion record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if GetPortfolio, GetVote or
// GetVoteByMember returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
