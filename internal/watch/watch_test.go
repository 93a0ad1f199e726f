package watch

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiahq/curia/pkg/ledger"
)

// syncBuffer makes bytes.Buffer safe for the Follow goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupTestClient(t *testing.T) *ledger.Client {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := ledger.NewClient(&redis.Options{Addr: mr.Addr()}, "test-community")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestFollow(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, client, &out)
	}()

	// Give the subscriptions a moment to attach
	time.Sleep(100 * time.Millisecond)

	entry := &ledger.VoteEntry{
		ID:         uuid.New().String(),
		MemberID:   "member-1",
		OpenedAtMs: time.Now().UnixMilli(),
	}
	require.NoError(t, client.OpenVote(ctx, entry))

	_, _, err := client.CastBallot(ctx, entry.ID, "voter-1", ledger.ChoiceYes)
	require.NoError(t, err)

	require.NoError(t, client.CloseVote(ctx, entry.ID, "approved", time.Now().UnixMilli()))

	// Wait for the three lines to land
	deadline := time.After(2 * time.Second)
	for {
		s := out.String()
		if strings.Contains(s, "vote opened for member-1") &&
			strings.Contains(s, "1 yes / 0 no") &&
			strings.Contains(s, "vote closed for member-1: approved") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for events, got:\n%s", out.String())
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not stop on context cancel")
	}
}

func TestFollowStopsOnCancel(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())

	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- Follow(ctx, client, &out)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not stop on context cancel")
	}
}
