package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiahq/curia/pkg/ledger"
)

func setupLedger(t *testing.T) *ledger.Client {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := ledger.NewClient(&redis.Options{Addr: mr.Addr()}, "test-community")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestRedisMessenger(t *testing.T) {
	client := setupLedger(t)
	ctx := context.Background()

	sub, err := client.SubscribeOutbox(ctx)
	require.NoError(t, err)
	defer sub.Close()

	messenger := NewRedisMessenger(client)

	handle, err := messenger.SendVoteRequest(ctx, "member-1", "vote content")
	require.NoError(t, err)
	assert.NotEmpty(t, handle)

	select {
	case msg := <-sub.Events():
		assert.Equal(t, ledger.OutboxVoteRequest, msg.Kind)
		assert.Equal(t, handle, msg.Handle)
		assert.Equal(t, "member-1", msg.MemberID)
		assert.Equal(t, "vote content", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for vote request")
	}

	require.NoError(t, messenger.UpdateMessage(ctx, handle, "updated content"))

	select {
	case msg := <-sub.Events():
		assert.Equal(t, ledger.OutboxMessageUpdate, msg.Kind)
		assert.Equal(t, handle, msg.Handle)
		assert.Equal(t, "updated content", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message update")
	}
}

func TestRedisNotifier(t *testing.T) {
	client := setupLedger(t)
	ctx := context.Background()

	sub, err := client.SubscribeOutbox(ctx)
	require.NoError(t, err)
	defer sub.Close()

	notifier := NewRedisNotifier(client)
	require.NoError(t, notifier.Notify(ctx, "member-1", "hello"))

	select {
	case msg := <-sub.Events():
		assert.Equal(t, ledger.OutboxNotify, msg.Kind)
		assert.Equal(t, "member-1", msg.MemberID)
		assert.Equal(t, "hello", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestHTTPRoleGranter(t *testing.T) {
	t.Run("succeeds on 200", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/roles/grant", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		granter := NewHTTPRoleGranter(srv.URL)
		require.NoError(t, granter.GrantRole(context.Background(), "member-1", "role-200"))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		granter := NewHTTPRoleGranter(srv.URL)
		require.NoError(t, granter.GrantRole(context.Background(), "member-1", "role-200"))
		assert.GreaterOrEqual(t, calls.Load(), int32(3))
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		granter := NewHTTPRoleGranter(srv.URL)
		err := granter.GrantRole(context.Background(), "member-1", "role-200")
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})
}
