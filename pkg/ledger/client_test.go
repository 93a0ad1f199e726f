package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-community")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func openTestVote(t *testing.T, client *Client, memberID string) *VoteEntry {
	t.Helper()
	entry := &VoteEntry{
		ID:         uuid.New().String(),
		MemberID:   memberID,
		OpenedAtMs: time.Now().UnixMilli(),
	}
	require.NoError(t, client.OpenVote(context.Background(), entry))
	return entry
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-community", client.Community())
	})

	t.Run("rejects empty community name", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "community name cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestPutGetPortfolio(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("round-trips a valid portfolio", func(t *testing.T) {
		p := &Portfolio{
			MemberID:    "member-1",
			Status:      StatusDraft,
			CurrentRole: "member",
			TargetRole:  "contributor",
			Content:     []string{"https://example.com/proof"},
			CreatedAtMs: time.Now().UnixMilli(),
		}

		require.NoError(t, client.PutPortfolio(ctx, p))

		retrieved, err := client.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, p.Status, retrieved.Status)
		assert.Equal(t, p.Content, retrieved.Content)
		assert.Equal(t, p.TargetRole, retrieved.TargetRole)
	})

	t.Run("rejects invalid portfolio", func(t *testing.T) {
		p := &Portfolio{MemberID: "member-2", Status: "limbo"}
		err := client.PutPortfolio(ctx, p)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid portfolio")
	})

	t.Run("returns not-found for missing member", func(t *testing.T) {
		_, err := client.GetPortfolio(ctx, "nobody")
		assert.True(t, IsNotFound(err))
	})

	t.Run("publishes full portfolio on put", func(t *testing.T) {
		sub, err := client.SubscribePortfolioEvents(ctx)
		require.NoError(t, err)
		defer sub.Close()

		p := &Portfolio{
			MemberID:    "member-3",
			Status:      StatusDraft,
			CurrentRole: "member",
			TargetRole:  "contributor",
		}
		require.NoError(t, client.PutPortfolio(ctx, p))

		select {
		case event := <-sub.Events():
			assert.Equal(t, "member-3", event.MemberID)
			assert.Equal(t, StatusDraft, event.Status)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for portfolio event")
		}
	})
}

func TestDeletePortfolio(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	p := &Portfolio{
		MemberID:    "member-1",
		Status:      StatusDraft,
		CurrentRole: "member",
		TargetRole:  "contributor",
	}
	require.NoError(t, client.PutPortfolio(ctx, p))
	require.NoError(t, client.DeletePortfolio(ctx, "member-1"))

	_, err := client.GetPortfolio(ctx, "member-1")
	assert.True(t, IsNotFound(err))
}

func TestListPortfolios(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	for _, member := range []string{"alpha", "beta", "gamma"} {
		p := &Portfolio{
			MemberID:    member,
			Status:      StatusDraft,
			CurrentRole: "member",
			TargetRole:  "contributor",
		}
		require.NoError(t, client.PutPortfolio(ctx, p))
	}

	portfolios, err := client.ListPortfolios(ctx)
	require.NoError(t, err)
	assert.Len(t, portfolios, 3)
}

func TestOpenVote(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("opens and indexes a vote", func(t *testing.T) {
		entry := openTestVote(t, client, "member-1")

		retrieved, err := client.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, "member-1", retrieved.MemberID)
		assert.False(t, retrieved.Closed)
		assert.Zero(t, retrieved.YesCount)

		byMember, err := client.GetVoteByMember(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, entry.ID, byMember.ID)

		open, err := client.ListOpenVotes(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, entry.ID, open[0].ID)
	})

	t.Run("rejects pre-closed entry", func(t *testing.T) {
		entry := &VoteEntry{
			ID:       uuid.New().String(),
			MemberID: "member-2",
			Closed:   true,
			Outcome:  "approved",
		}
		err := client.OpenVote(ctx, entry)
		assert.Error(t, err)
	})

	t.Run("rejects non-empty tally", func(t *testing.T) {
		entry := &VoteEntry{
			ID:       uuid.New().String(),
			MemberID: "member-3",
			YesCount: 1,
		}
		err := client.OpenVote(ctx, entry)
		assert.Error(t, err)
	})
}

func TestCastBallot(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("counts distinct voters", func(t *testing.T) {
		entry := openTestVote(t, client, "member-1")

		yes, no, err := client.CastBallot(ctx, entry.ID, "voter-a", ChoiceYes)
		require.NoError(t, err)
		assert.Equal(t, 1, yes)
		assert.Equal(t, 0, no)

		yes, no, err = client.CastBallot(ctx, entry.ID, "voter-b", ChoiceNo)
		require.NoError(t, err)
		assert.Equal(t, 1, yes)
		assert.Equal(t, 1, no)
	})

	t.Run("rejects duplicate voter with unchanged tally", func(t *testing.T) {
		entry := openTestVote(t, client, "member-2")

		_, _, err := client.CastBallot(ctx, entry.ID, "voter-a", ChoiceYes)
		require.NoError(t, err)

		_, _, err = client.CastBallot(ctx, entry.ID, "voter-a", ChoiceNo)
		assert.ErrorIs(t, err, ErrDuplicateVote)

		retrieved, err := client.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, retrieved.YesCount)
		assert.Equal(t, 0, retrieved.NoCount)
	})

	t.Run("rejects ballot on closed vote", func(t *testing.T) {
		entry := openTestVote(t, client, "member-3")
		require.NoError(t, client.CloseVote(ctx, entry.ID, "rejected", time.Now().UnixMilli()))

		_, _, err := client.CastBallot(ctx, entry.ID, "voter-z", ChoiceYes)
		assert.ErrorIs(t, err, ErrVotingClosed)
	})

	t.Run("rejects unknown vote", func(t *testing.T) {
		_, _, err := client.CastBallot(ctx, uuid.New().String(), "voter-a", ChoiceYes)
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects invalid choice", func(t *testing.T) {
		entry := openTestVote(t, client, "member-4")
		_, _, err := client.CastBallot(ctx, entry.ID, "voter-a", Choice("maybe"))
		assert.Error(t, err)
	})

	t.Run("voter set size always equals tally total", func(t *testing.T) {
		entry := openTestVote(t, client, "member-5")

		voters := []string{"v1", "v2", "v3", "v4", "v5"}
		for i, voter := range voters {
			choice := ChoiceYes
			if i%2 == 1 {
				choice = ChoiceNo
			}
			yes, no, err := client.CastBallot(ctx, entry.ID, voter, choice)
			require.NoError(t, err)

			count, err := client.VoterCount(ctx, entry.ID)
			require.NoError(t, err)
			assert.Equal(t, yes+no, count)
		}
	})

	t.Run("concurrent ballots never double-count", func(t *testing.T) {
		entry := openTestVote(t, client, "member-6")

		var wg sync.WaitGroup
		dups := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				// All goroutines race on the same identity; exactly one wins
				_, _, err := client.CastBallot(ctx, entry.ID, "same-voter", ChoiceYes)
				if err != nil {
					dups <- err
				}
			}()
		}
		wg.Wait()
		close(dups)

		retrieved, err := client.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, retrieved.YesCount)
		assert.Equal(t, 0, retrieved.NoCount)

		for err := range dups {
			assert.ErrorIs(t, err, ErrDuplicateVote)
		}
	})
}

func TestClaimFinalize(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	entry := openTestVote(t, client, "member-1")

	won, err := client.ClaimFinalize(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, won)

	// Second claim must lose
	won, err = client.ClaimFinalize(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestCloseVote(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	entry := openTestVote(t, client, "member-1")
	closedAt := time.Now().UnixMilli()
	require.NoError(t, client.CloseVote(ctx, entry.ID, "approved", closedAt))

	retrieved, err := client.GetVote(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.Closed)
	assert.Equal(t, "approved", retrieved.Outcome)
	assert.Equal(t, closedAt, retrieved.ClosedAtMs)

	// No longer listed as open, but still reachable through the index
	open, err := client.ListOpenVotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	byMember, err := client.GetVoteByMember(ctx, "member-1")
	require.NoError(t, err)
	assert.True(t, byMember.Closed)
}

func TestHistory(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("empty without records", func(t *testing.T) {
		records, err := client.History(ctx, "member-1")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("appends in order", func(t *testing.T) {
		first := &PromotionRecord{
			ID:           uuid.New().String(),
			MemberID:     "member-1",
			FromRole:     "member",
			ToRole:       "contributor",
			YesCount:     3,
			NoCount:      2,
			PromotedAtMs: 1000,
		}
		second := &PromotionRecord{
			ID:           uuid.New().String(),
			MemberID:     "member-1",
			FromRole:     "contributor",
			ToRole:       "veteran",
			YesCount:     5,
			NoCount:      0,
			PromotedAtMs: 2000,
		}

		require.NoError(t, client.AppendHistory(ctx, first))
		require.NoError(t, client.AppendHistory(ctx, second))

		records, err := client.History(ctx, "member-1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "contributor", records[0].ToRole)
		assert.Equal(t, "veteran", records[1].ToRole)
	})

	t.Run("rejects invalid record", func(t *testing.T) {
		err := client.AppendHistory(ctx, &PromotionRecord{ID: "nope"})
		assert.Error(t, err)
	})
}

func TestVoteEvents(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeVoteEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	entry := openTestVote(t, client, "member-1")

	select {
	case event := <-sub.Events():
		assert.Equal(t, VoteEventOpened, event.Kind)
		assert.Equal(t, entry.ID, event.VoteID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for opened event")
	}

	_, _, err = client.CastBallot(ctx, entry.ID, "voter-a", ChoiceYes)
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.Equal(t, VoteEventBallot, event.Kind)
		assert.Equal(t, 1, event.YesCount)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for ballot event")
	}
}

func TestOutbox(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribeOutbox(ctx)
	require.NoError(t, err)
	defer sub.Close()

	msg := &OutboxMessage{
		Kind:     OutboxVoteRequest,
		MemberID: "member-1",
		Handle:   uuid.New().String(),
		Content:  "promotion vote for member-1",
	}
	require.NoError(t, client.PublishOutbox(ctx, msg))
	assert.NotEmpty(t, msg.ID)

	select {
	case received := <-sub.Events():
		assert.Equal(t, OutboxVoteRequest, received.Kind)
		assert.Equal(t, msg.Handle, received.Handle)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbox message")
	}

	t.Run("rejects empty content", func(t *testing.T) {
		err := client.PublishOutbox(ctx, &OutboxMessage{Kind: OutboxNotify, MemberID: "m"})
		assert.Error(t, err)
	})
}
