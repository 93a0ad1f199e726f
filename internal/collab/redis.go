package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/curiahq/curia/pkg/ledger"
)

// sendBackoff returns the bounded retry policy for outbox publishes.
// Short and capped: the caller is a request handler, not a queue worker.
func sendBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return backoff.WithContext(b, ctx)
}

// RedisMessenger implements Messenger by publishing rendered-message
// requests on the community outbox channel. The chat bot bridge consumes
// the channel and performs the actual platform calls; the handle minted
// here is the shared identifier between ledger state and the bridge's
// message mapping.
type RedisMessenger struct {
	client *ledger.Client
}

// NewRedisMessenger creates a messenger publishing through the given
// ledger client.
func NewRedisMessenger(client *ledger.Client) *RedisMessenger {
	return &RedisMessenger{client: client}
}

// SendVoteRequest mints a fresh handle and publishes a vote_request outbox
// message, retrying with bounded backoff on transport failure.
func (m *RedisMessenger) SendVoteRequest(ctx context.Context, memberID, content string) (string, error) {
	handle := uuid.New().String()

	msg := &ledger.OutboxMessage{
		Kind:     ledger.OutboxVoteRequest,
		MemberID: memberID,
		Handle:   handle,
		Content:  content,
	}

	op := func() error { return m.client.PublishOutbox(ctx, msg) }
	if err := backoff.Retry(op, sendBackoff(ctx)); err != nil {
		return "", fmt.Errorf("failed to publish vote request: %w", err)
	}

	return handle, nil
}

// UpdateMessage publishes a message_update outbox message for an existing
// handle, retrying with bounded backoff.
func (m *RedisMessenger) UpdateMessage(ctx context.Context, handle, content string) error {
	msg := &ledger.OutboxMessage{
		Kind:    ledger.OutboxMessageUpdate,
		Handle:  handle,
		Content: content,
	}

	op := func() error { return m.client.PublishOutbox(ctx, msg) }
	if err := backoff.Retry(op, sendBackoff(ctx)); err != nil {
		return fmt.Errorf("failed to publish message update: %w", err)
	}

	return nil
}

// RedisNotifier implements Notifier by publishing notify outbox messages.
// Single attempt: notifications are fire-and-forget by contract and the
// caller already treats failure as log-only.
type RedisNotifier struct {
	client *ledger.Client
}

// NewRedisNotifier creates a notifier publishing through the given ledger
// client.
func NewRedisNotifier(client *ledger.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publishes a direct-message request for the member.
func (n *RedisNotifier) Notify(ctx context.Context, memberID, message string) error {
	msg := &ledger.OutboxMessage{
		Kind:     ledger.OutboxNotify,
		MemberID: memberID,
		Content:  message,
	}

	if err := n.client.PublishOutbox(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}
