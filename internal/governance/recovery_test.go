package governance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiahq/curia/pkg/ledger"
)

// loadBallots writes ballots straight into the ledger, bypassing the
// service so no finalization fires. Simulates a process that died after
// counting ballots.
func loadBallots(t *testing.T, store *ledger.Client, voteID string, yes, no int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < yes; i++ {
		_, _, err := store.CastBallot(ctx, voteID, "y-voter-"+voterID(i), ledger.ChoiceYes)
		require.NoError(t, err)
	}
	for i := 0; i < no; i++ {
		_, _, err := store.CastBallot(ctx, voteID, "n-voter-"+voterID(i), ledger.ChoiceNo)
		require.NoError(t, err)
	}
}

func TestRecoverState(t *testing.T) {
	ctx := context.Background()

	t.Run("finalizes a decisive open vote", func(t *testing.T) {
		svc, store, _, granter, _ := setupService(t)
		entry := openVoteFor(t, svc, "member-1")
		loadBallots(t, store, entry.ID, 4, 1)

		require.NoError(t, svc.RecoverState(ctx))

		p, err := store.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPromoted, p.Status)
		assert.Equal(t, 1, granter.callCount())

		closed, err := store.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, closed.Closed)
		assert.Equal(t, "approved", closed.Outcome)
	})

	t.Run("drops a stale finalization claim", func(t *testing.T) {
		svc, store, _, _, _ := setupService(t)
		entry := openVoteFor(t, svc, "member-1")
		loadBallots(t, store, entry.ID, 1, 4)

		// A previous process claimed finalization and died before closing
		won, err := store.ClaimFinalize(ctx, entry.ID)
		require.NoError(t, err)
		require.True(t, won)

		require.NoError(t, svc.RecoverState(ctx))

		closed, err := store.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, closed.Closed)
		assert.Equal(t, "rejected", closed.Outcome)

		p, err := store.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusRejected, p.Status)
	})

	t.Run("leaves non-decisive votes open", func(t *testing.T) {
		svc, store, _, _, _ := setupService(t)
		entry := openVoteFor(t, svc, "member-1")
		loadBallots(t, store, entry.ID, 2, 1)

		require.NoError(t, svc.RecoverState(ctx))

		open, err := store.GetVote(ctx, entry.ID)
		require.NoError(t, err)
		assert.False(t, open.Closed)

		p, err := store.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPendingVote, p.Status)
	})

	t.Run("retries stalled promotions", func(t *testing.T) {
		svc, store, _, granter, _ := setupService(t)
		granter.failures = 1
		openVoteFor(t, svc, "member-1")
		approveByVote(t, svc, "member-1")

		p, err := store.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		require.Equal(t, ledger.StatusApproved, p.Status)

		require.NoError(t, svc.RecoverState(ctx))

		p, err = store.GetPortfolio(ctx, "member-1")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusPromoted, p.Status)
	})

	t.Run("empty ledger recovers cleanly", func(t *testing.T) {
		svc, _, _, _, _ := setupService(t)
		assert.NoError(t, svc.RecoverState(ctx))
	})
}
