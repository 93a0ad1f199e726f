package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// VoteEventKind classifies vote-channel events.
type VoteEventKind string

const (
	// VoteEventOpened is published when a vote entry is created.
	VoteEventOpened VoteEventKind = "opened"

	// VoteEventBallot is published after each accepted ballot.
	VoteEventBallot VoteEventKind = "ballot"

	// VoteEventClosed is published when the finalizer closes the entry.
	VoteEventClosed VoteEventKind = "closed"
)

// VoteEvent is the payload published on the vote events channel.
type VoteEvent struct {
	Kind     VoteEventKind `json:"kind"`
	VoteID   string        `json:"vote_id"`
	MemberID string        `json:"member_id,omitempty"`
	YesCount int           `json:"yes_count"`
	NoCount  int           `json:"no_count"`
	Outcome  string        `json:"outcome,omitempty"`
}

// OutboxKind classifies messages on the outbox channel.
type OutboxKind string

const (
	// OutboxVoteRequest asks the bot bridge to post a new vote message.
	OutboxVoteRequest OutboxKind = "vote_request"

	// OutboxMessageUpdate asks the bot bridge to re-render an existing
	// vote message identified by its handle.
	OutboxMessageUpdate OutboxKind = "message_update"

	// OutboxNotify asks the bot bridge to send a direct message.
	OutboxNotify OutboxKind = "notify"
)

// OutboxMessage is a rendered-message request for the chat bot bridge. The
// handle is an opaque identifier minted by the messenger; the bridge maps
// it to the platform's message ID. The ledger never parses rendered content
// back - the bridge is a pure projection target.
type OutboxMessage struct {
	ID       string     `json:"id"`        // UUID of this request
	Kind     OutboxKind `json:"kind"`      // What the bridge should do
	MemberID string     `json:"member_id"` // Subject (vote_request, notify) or "" (message_update)
	Handle   string     `json:"handle"`    // Message handle (vote_request mints it, message_update targets it)
	Content  string     `json:"content"`   // Rendered message body
}

// Validate checks if the OutboxMessage has valid field values.
func (m *OutboxMessage) Validate() error {
	if !isValidUUID(m.ID) {
		return fmt.Errorf("invalid outbox message ID: not a valid UUID")
	}

	switch m.Kind {
	case OutboxVoteRequest, OutboxMessageUpdate, OutboxNotify:
	default:
		return fmt.Errorf("unknown outbox kind: %q", m.Kind)
	}

	if m.Content == "" {
		return fmt.Errorf("outbox content cannot be empty")
	}

	return nil
}

// publishVoteEvent publishes a full vote event for an entry.
func (c *Client) publishVoteEvent(ctx context.Context, kind VoteEventKind, entry *VoteEntry) error {
	event := &VoteEvent{
		Kind:     kind,
		VoteID:   entry.ID,
		MemberID: entry.MemberID,
		YesCount: entry.YesCount,
		NoCount:  entry.NoCount,
		Outcome:  entry.Outcome,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal vote event: %w", err)
	}

	channel := VoteEventsChannel(c.community)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish vote event: %w", err)
	}

	return nil
}

// publishBallotEvent publishes a ballot event with the post-apply tally.
// Best-effort: a publish failure must not fail the already-committed
// ballot, so errors are swallowed here.
func (c *Client) publishBallotEvent(ctx context.Context, voteID string, yes, no int) {
	event := &VoteEvent{
		Kind:     VoteEventBallot,
		VoteID:   voteID,
		YesCount: yes,
		NoCount:  no,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return
	}

	_ = c.rdb.Publish(ctx, VoteEventsChannel(c.community), eventJSON).Err()
}

// PublishOutbox publishes a rendered-message request for the bot bridge.
// A fresh UUID is assigned if the message has none.
func (c *Client) PublishOutbox(ctx context.Context, msg *OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid outbox message: %w", err)
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox message: %w", err)
	}

	channel := OutboxChannel(c.community)
	if err := c.rdb.Publish(ctx, channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish outbox message: %w", err)
	}

	return nil
}

// PortfolioSubscription represents an active Pub/Sub subscription to
// portfolio events. Caller must call Close() when done.
type PortfolioSubscription struct {
	events <-chan *Portfolio
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of portfolio events.
// The channel is closed when the subscription is closed or the context is
// cancelled.
func (s *PortfolioSubscription) Events() <-chan *Portfolio {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are non-fatal;
// the subscription continues and the offending message is skipped.
func (s *PortfolioSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements
// io.Closer. Safe to call multiple times.
func (s *PortfolioSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// VoteSubscription represents an active Pub/Sub subscription to vote
// events. Caller must call Close() when done.
type VoteSubscription struct {
	events <-chan *VoteEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of vote events.
func (s *VoteSubscription) Events() <-chan *VoteEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *VoteSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
func (s *VoteSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// OutboxSubscription represents an active Pub/Sub subscription to outbox
// messages. Consumed by the bot bridge. Caller must call Close() when done.
type OutboxSubscription struct {
	events <-chan *OutboxMessage
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of outbox messages.
func (s *OutboxSubscription) Events() <-chan *OutboxMessage {
	return s.events
}

// Errors returns the channel of subscription errors.
func (s *OutboxSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
func (s *OutboxSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribePortfolioEvents subscribes to portfolio events for this
// community. Returns a subscription delivering full portfolio objects.
// Caller must call subscription.Close() when done; context cancellation
// also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribePortfolioEvents(ctx context.Context) (*PortfolioSubscription, error) {
	events, errs, cancel := subscribeJSON[Portfolio](ctx, c, PortfolioEventsChannel(c.community))
	return &PortfolioSubscription{events: events, errors: errs, cancel: cancel}, nil
}

// SubscribeVoteEvents subscribes to vote events for this community.
func (c *Client) SubscribeVoteEvents(ctx context.Context) (*VoteSubscription, error) {
	events, errs, cancel := subscribeJSON[VoteEvent](ctx, c, VoteEventsChannel(c.community))
	return &VoteSubscription{events: events, errors: errs, cancel: cancel}, nil
}

// SubscribeOutbox subscribes to rendered-message requests for this
// community. Intended for the bot bridge process.
func (c *Client) SubscribeOutbox(ctx context.Context) (*OutboxSubscription, error) {
	events, errs, cancel := subscribeJSON[OutboxMessage](ctx, c, OutboxChannel(c.community))
	return &OutboxSubscription{events: events, errors: errs, cancel: cancel}, nil
}

// subscribeJSON runs the shared Pub/Sub pump: subscribe to a channel,
// unmarshal each payload into T and deliver pointers on a buffered channel.
// Malformed payloads go to the error channel and are skipped.
func subscribeJSON[T any](ctx context.Context, c *Client, channel string) (<-chan *T, <-chan error, func()) {
	pubsub := c.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *T, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event T
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal event on %s: %w", channel, err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return eventsChan, errorsChan, cancelFunc
}
