package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
	drained   chan struct{}
}

func newFakeReader(values ...string) *fakeReader {
	r := &fakeReader{drained: make(chan struct{})}
	for i, v := range values {
		r.messages = append(r.messages, kafka.Message{Topic: "screening-events", Offset: int64(i), Value: []byte(v)})
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func runConsumer(t *testing.T, c *KafkaConsumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumer did not drain the reader")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestKafkaConsumerPublishesAndCommits(t *testing.T) {
	reader := newFakeReader(
		`{"external_ref":"scr-1","organization_id":1,"beneficiary_id":2,"occurred_at":"2024-07-05T09:00:00Z"}`,
		`not json`,
		`{"external_ref":"","organization_id":1,"beneficiary_id":2,"occurred_at":"2024-07-05T09:00:00Z"}`,
	)
	bus := NewBus()
	var handled []string
	bus.Subscribe(func(_ context.Context, ev ScreeningCompleted) error {
		handled = append(handled, ev.ExternalRef)
		return nil
	})

	runConsumer(t, NewKafkaConsumer(reader, bus, nil), reader)

	if len(handled) != 1 || handled[0] != "scr-1" {
		t.Fatalf("unexpected handled events: %v", handled)
	}
	if len(reader.committed) != 3 {
		t.Fatalf("every message should be committed, got %v", reader.committed)
	}
	if !reader.closed {
		t.Fatalf("reader was not closed")
	}
}

func TestKafkaConsumerRetriesHandlerFailures(t *testing.T) {
	reader := newFakeReader(`{"external_ref":"scr-2","organization_id":1,"beneficiary_id":2,"occurred_at":"2024-07-05T09:00:00Z"}`)
	bus := NewBus()
	calls := 0
	bus.Subscribe(func(context.Context, ScreeningCompleted) error {
		calls++
		if calls < 2 {
			return errors.New("database is locked")
		}
		return nil
	})

	consumer := NewKafkaConsumer(reader, bus, nil)
	consumer.backoff = time.Millisecond
	runConsumer(t, consumer, reader)

	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
	if len(reader.committed) != 1 {
		t.Fatalf("expected the message to be committed, got %v", reader.committed)
	}
}

func TestKafkaConsumerKeepsFailingMessageUncommitted(t *testing.T) {
	reader := newFakeReader(
		`{"external_ref":"scr-3","organization_id":1,"beneficiary_id":2,"occurred_at":"2024-07-05T09:00:00Z"}`,
		`{"external_ref":"scr-4","organization_id":1,"beneficiary_id":2,"occurred_at":"2024-07-06T09:00:00Z"}`,
	)
	bus := NewBus()
	var handled []string
	retried := make(chan struct{})
	bus.Subscribe(func(_ context.Context, ev ScreeningCompleted) error {
		handled = append(handled, ev.ExternalRef)
		if len(handled) == 4 {
			close(retried)
		}
		return errors.New("database is unavailable")
	})

	consumer := NewKafkaConsumer(reader, bus, nil)
	consumer.backoff = time.Millisecond
	consumer.maxBackoff = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-retried:
	case <-time.After(5 * time.Second):
		t.Fatalf("failing message was not retried")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, ref := range handled {
		if ref != "scr-3" {
			t.Fatalf("the next message must wait for the failing one, handled %v", handled)
		}
	}
	if len(reader.committed) != 0 {
		t.Fatalf("a message that never applied must not be committed, got %v", reader.committed)
	}
	if !reader.closed {
		t.Fatalf("reader was not closed")
	}
}
