package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/kafka-go"

	"github.com/exchango/backend/internal/metrics"
	"github.com/exchango/backend/internal/model"
)

const eventTypeHeader = "event-type"

// RateUpdatedEvent is the event-type header value of rate change messages.
const RateUpdatedEvent = "RateUpdated"

// KafkaConfig holds the broker settings of the Kafka driver
type KafkaConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	HandlerTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBus publishes events to a topic and feeds subscribers from a consumer
// group on the same topic. Messages are keyed by office id so changes to one
// office stay ordered within a partition.
type KafkaBus struct {
	cfg    KafkaConfig
	logger *slog.Logger
	subs   subscribers

	writer messageWriter
	reader messageReader

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewKafkaBus(cfg KafkaConfig, logger *slog.Logger) *KafkaBus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Async:        true,
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	bus := newKafkaBus(cfg, writer, reader, logger)
	writer.Completion = bus.writeCompleted
	return bus
}

func newKafkaBus(cfg KafkaConfig, w messageWriter, r messageReader, logger *slog.Logger) *KafkaBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaBus{cfg: cfg, writer: w, reader: r, logger: logger}
}

func (b *KafkaBus) Subscribe(name string, h Handler) {
	b.subs.add(name, h)
	b.logger.Info("event subscriber registered", slog.String("subscriber", name), slog.String("topic", b.cfg.Topic))
}

// Publish hands event to the writer as JSON and returns without waiting for
// the broker. Delivery failures surface in writeCompleted.
func (b *KafkaBus) Publish(ctx context.Context, event model.RateChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode rate change event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Office.ID.String()),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: eventTypeHeader, Value: []byte(RateUpdatedEvent)},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsDropped.WithLabelValues("kafka", "write_failed").Inc()
		return fmt.Errorf("write rate change event: %w", err)
	}
	metrics.EventsPublished.WithLabelValues("kafka").Inc()
	return nil
}

// writeCompleted receives the outcome of each asynchronous batch.
func (b *KafkaBus) writeCompleted(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range messages {
		metrics.EventsDropped.WithLabelValues("kafka", "write_failed").Inc()
		b.logger.Error("rate change event not written",
			slog.String("topic", b.cfg.Topic),
			slog.String("office_id", string(msg.Key)),
			slog.String("error", err.Error()),
		)
	}
}

// Start launches the consumer loop.
func (b *KafkaBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})
	b.running = true

	go b.consume(ctx, b.done)

	b.logger.Info("kafka event bus started",
		slog.String("topic", b.cfg.Topic),
		slog.String("group_id", b.cfg.GroupID),
	)
	return nil
}

// Stop ends the consumer loop and closes the writer and reader.
func (b *KafkaBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	b.cancel()
	done := b.done
	b.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("stop kafka event bus: %w", ctx.Err())
	}

	var result *multierror.Error
	if err := b.writer.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close writer: %w", err))
	}
	if err := b.reader.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close reader: %w", err))
	}
	b.logger.Info("kafka event bus stopped")
	return result.ErrorOrNil()
}

func (b *KafkaBus) consume(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		msg, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("fetch rate change message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if event, ok := b.decode(msg); ok {
			deliver(b.subs.snapshot(), event, b.cfg.HandlerTimeout, b.logger)
		}

		if err := b.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			b.logger.Error("commit rate change message",
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// decode parses a message; foreign or malformed messages are skipped.
func (b *KafkaBus) decode(msg kafka.Message) (model.RateChangeEvent, bool) {
	var event model.RateChangeEvent
	for _, h := range msg.Headers {
		if h.Key == eventTypeHeader && string(h.Value) != RateUpdatedEvent {
			return event, false
		}
	}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		b.logger.Warn("skipping malformed rate change message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		return event, false
	}
	return event, true
}
