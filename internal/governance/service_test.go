package governance

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/curiahq/curia/internal/config"
	"github.com/curiahq/curia/pkg/ledger"
)

// fakeMessenger records vote request and update calls.
type fakeMessenger struct {
	mu      sync.Mutex
	handle  string
	sendErr error
	sent    []string
	updates []string
}

func (m *fakeMessenger) SendVoteRequest(ctx context.Context, memberID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, content)
	return m.handle, nil
}

func (m *fakeMessenger) UpdateMessage(ctx context.Context, handle, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, content)
	return nil
}

func (m *fakeMessenger) updateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// fakeGranter fails its first `failures` calls, then succeeds.
type fakeGranter struct {
	mu       sync.Mutex
	calls    []string
	failures int
}

func (g *fakeGranter) GrantRole(ctx context.Context, memberID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, memberID+":"+roleID)
	if g.failures > 0 {
		g.failures--
		return errors.New("role gateway unavailable")
	}
	return nil
}

func (g *fakeGranter) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// fakeNotifier records direct messages.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(ctx context.Context, memberID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *fakeNotifier) messageCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Version: "1.0",
		Roles: map[string]string{
			"member":      "100",
			"contributor": "200",
			"maintainer":  "300",
			"council":     "400",
		},
		Ladder:        []string{"member", "contributor", "maintainer"},
		ReviewerRoles: []string{"council"},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func setupService(t *testing.T) (*Service, *ledger.Client, *fakeMessenger, *fakeGranter, *fakeNotifier) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store, err := ledger.NewClient(&redis.Options{Addr: mr.Addr()}, "test-community")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	messenger := &fakeMessenger{handle: "msg-1"}
	granter := &fakeGranter{}
	notifier := &fakeNotifier{}
	svc := NewService(store, testConfig(t), messenger, granter, notifier)

	return svc, store, messenger, granter, notifier
}

// submitPortfolio drives a fresh portfolio through draft and submission.
func submitPortfolio(t *testing.T, svc *Service, memberID string) *ledger.Portfolio {
	t.Helper()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, memberID, "contributor", []string{"https://example.com/work"})
	require.NoError(t, err)
	p, err := svc.SubmitPortfolio(ctx, memberID)
	require.NoError(t, err)
	return p
}

// openVoteFor submits and reviewer-approves a portfolio, returning the
// open vote entry.
func openVoteFor(t *testing.T, svc *Service, memberID string) *ledger.VoteEntry {
	t.Helper()
	submitPortfolio(t, svc, memberID)
	entry, err := svc.Review(context.Background(), memberID, "reviewer-1", []string{"council"}, ReviewApprove, "")
	require.NoError(t, err)
	return entry
}
