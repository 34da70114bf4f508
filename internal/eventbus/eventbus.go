// Package eventbus carries rate change events from the rate store to the
// alert matcher. Publishing never blocks the caller; handlers run on a
// fixed pool of workers with their own deadline.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/exchango/backend/internal/metrics"
	"github.com/exchango/backend/internal/model"
)

var (
	ErrBusNotRunning = errors.New("event bus not running")
	ErrBusFull       = errors.New("event bus buffer full")
)

// Handler consumes one rate change event.
type Handler func(ctx context.Context, event model.RateChangeEvent) error

// Publisher hands an event to the bus.
type Publisher interface {
	Publish(ctx context.Context, event model.RateChangeEvent) error
}

// Bus is the lifecycle shared by the in-memory and Kafka drivers.
type Bus interface {
	Publisher
	Subscribe(name string, h Handler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Config holds the in-memory bus settings
type Config struct {
	BufferSize     int
	Workers        int
	HandlerTimeout time.Duration
}

// DefaultConfig returns the default bus configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:     256,
		Workers:        4,
		HandlerTimeout: 30 * time.Second,
	}
}

type subscriber struct {
	name    string
	handler Handler
}

// subscribers is a copy-on-write list of named handlers.
type subscribers struct {
	mu   sync.RWMutex
	list []subscriber
}

func (s *subscribers) add(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]subscriber, len(s.list), len(s.list)+1)
	copy(next, s.list)
	s.list = append(next, subscriber{name: name, handler: h})
}

func (s *subscribers) snapshot() []subscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list
}

// deliver hands event to every subscriber. A failing or panicking handler is
// logged and does not affect the others.
func deliver(subs []subscriber, event model.RateChangeEvent, timeout time.Duration, logger *slog.Logger) {
	for _, sub := range subs {
		func() {
			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			defer func() {
				if r := recover(); r != nil {
					metrics.HandlerErrors.WithLabelValues(sub.name).Inc()
					logger.Error("event handler panicked",
						slog.String("subscriber", sub.name),
						slog.String("rate_id", event.RateID.String()),
						slog.Any("panic", r),
					)
				}
			}()

			if err := sub.handler(ctx, event); err != nil {
				metrics.HandlerErrors.WithLabelValues(sub.name).Inc()
				logger.Error("event handler failed",
					slog.String("subscriber", sub.name),
					slog.String("rate_id", event.RateID.String()),
					slog.String("error", err.Error()),
				)
			}
		}()
	}
}

// MemoryBus is an in-process bus over a buffered channel.
type MemoryBus struct {
	cfg    Config
	logger *slog.Logger
	subs   subscribers

	mu      sync.RWMutex
	running bool
	events  chan model.RateChangeEvent
	wg      sync.WaitGroup
}

// NewMemoryBus creates a stopped bus; call Start before publishing.
func NewMemoryBus(cfg Config, logger *slog.Logger) *MemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &MemoryBus{cfg: cfg, logger: logger}
}

// Subscribe registers h under name. Subscribing after Start is allowed.
func (b *MemoryBus) Subscribe(name string, h Handler) {
	b.subs.add(name, h)
	b.logger.Info("event subscriber registered", slog.String("subscriber", name))
}

func (b *MemoryBus) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}

	b.events = make(chan model.RateChangeEvent, b.cfg.BufferSize)
	b.running = true
	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.work(b.events)
	}

	b.logger.Info("event bus started",
		slog.Int("workers", b.cfg.Workers),
		slog.Int("buffer", b.cfg.BufferSize),
	)
	return nil
}

// Stop rejects new events, lets the workers drain what is buffered and
// waits for them until ctx is done.
func (b *MemoryBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.events)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop event bus: %w", ctx.Err())
	}
}

// Publish enqueues event without waiting for handlers.
func (b *MemoryBus) Publish(_ context.Context, event model.RateChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.running {
		metrics.EventsDropped.WithLabelValues("memory", "not_running").Inc()
		return ErrBusNotRunning
	}

	select {
	case b.events <- event:
		metrics.EventsPublished.WithLabelValues("memory").Inc()
		return nil
	default:
		metrics.EventsDropped.WithLabelValues("memory", "full").Inc()
		return ErrBusFull
	}
}

func (b *MemoryBus) work(events <-chan model.RateChangeEvent) {
	defer b.wg.Done()
	for event := range events {
		deliver(b.subs.snapshot(), event, b.cfg.HandlerTimeout, b.logger)
	}
}
