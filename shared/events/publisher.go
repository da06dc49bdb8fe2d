package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/ksuid"
)

// streamMaxLen caps each stream; consumers only need the recent tail.
const streamMaxLen = 10000

// eventStreams is the one stream each event type may be appended to. The read
// model projector and the request feed subscribe per stream, so an event on
// the wrong stream would never be seen.
var eventStreams = map[string]string{
	AccountCreated:     AccountEventsStream,
	AccountUpdated:     AccountEventsStream,
	AccountDeleted:     AccountEventsStream,
	TransactionCreated: LedgerEventsStream,
	BalanceUpdated:     LedgerEventsStream,
	KYCSubmitted:       RequestEventsStream,
	KYCResolved:        RequestEventsStream,
	UpdateSubmitted:    RequestEventsStream,
	UpdateResolved:     RequestEventsStream,
}

// StreamFor returns the stream an event type belongs on.
func StreamFor(eventType string) (string, bool) {
	stream, ok := eventStreams[eventType]
	return stream, ok
}

// Publisher appends bank events to Redis streams after the ledger or request
// queue has committed. Each entry carries a ksuid so consumers can tell
// redeliveries apart from new events.
type Publisher struct {
	client *redis.Client
	maxLen int64
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, maxLen: streamMaxLen}
}

// Publish rejects an event type that is unknown or routed to another stream
// before anything is written.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	want, ok := StreamFor(eventType)
	if !ok {
		return fmt.Errorf("unknown event type %q", eventType)
	}
	if want != stream {
		return fmt.Errorf("event %s belongs on %s, not %s", eventType, want, stream)
	}

	eventJSON, err := json.Marshal(Event{
		ID:        ksuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"event": eventJSON},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", eventType, stream, err)
	}
	return nil
}
