package events

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	retryBackoff    = 2 * time.Second
	maxRetryBackoff = time.Minute
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads screening events from a topic and publishes them on the bus.
type KafkaConsumer struct {
	reader     MessageReader
	bus        *Bus
	logger     *zap.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

func NewKafkaConsumer(reader MessageReader, bus *Bus, logger *zap.Logger) *KafkaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaConsumer{reader: reader, bus: bus, logger: logger.Named("kafka"), backoff: retryBackoff, maxBackoff: maxRetryBackoff}
}

// Run consumes until ctx is cancelled. Malformed and invalid messages are logged and committed.
// A message whose handler fails stays uncommitted and is retried with backoff until it applies.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !c.handle(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit screening event", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handle reports whether msg may be committed. It returns false only when ctx ends first.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) bool {
	fields := []zap.Field{zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset)}
	ev, err := DecodeScreeningCompleted(msg.Value)
	if err != nil {
		c.logger.Warn("dropping malformed screening event", append(fields, zap.Error(err))...)
		return true
	}
	fields = append(fields, zap.String("external_ref", ev.ExternalRef))

	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		err = c.bus.Publish(ctx, ev)
		switch {
		case err == nil:
			c.logger.Info("screening event handled", fields...)
			return true
		case errors.Is(err, ErrInvalidEvent):
			c.logger.Warn("dropping invalid screening event", append(fields, zap.Error(err))...)
			return true
		case ctx.Err() != nil:
			return false
		}

		c.logger.Warn("screening event handler failed, retrying",
			append(fields, zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(err))...)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false
		}
		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}
