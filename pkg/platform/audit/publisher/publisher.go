// Package publisher emits audit events either synchronously to a store or
// asynchronously through a bounded ring buffer drained by a background worker.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	audit "electiondesk/pkg/platform/audit"
	auditmetrics "electiondesk/pkg/platform/audit/metrics"
	"electiondesk/pkg/platform/audit/worker"
	"electiondesk/pkg/platform/circuit"
	"electiondesk/pkg/requestcontext"
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
	breaker *circuit.Breaker

	bufferSize      int
	batchSize       int
	interval        time.Duration
	shutdownTimeout time.Duration

	buffer *RingBuffer
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a ring buffer of the given size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		p.batchSize = n
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		p.interval = d
	}
}

// WithShutdownTimeout bounds how long Close waits for pending events to reach the sink.
func WithShutdownTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.shutdownTimeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker guards the sink in async mode.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:    store,
		logger:   slog.Default(),
		interval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.startAsync()
	}
	return p
}

func (p *Publisher) startAsync() {
	p.buffer = NewRingBuffer(p.bufferSize)
	p.wake = make(chan struct{}, 1)
	p.done = make(chan struct{})

	w := worker.NewWorker(p.buffer, p.store,
		worker.WithWake(p.wake),
		worker.WithBatchSize(p.batchSize),
		worker.WithInterval(p.interval),
		worker.WithShutdownTimeout(p.shutdownTimeout),
		worker.WithBreaker(p.breaker),
		worker.WithLogger(p.logger),
		worker.WithMetrics(p.metrics),
	)
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go func() {
		defer close(p.done)
		_ = w.Run(ctx)
	}()
}

// Emit records an event. The timestamp and request ID are filled from ctx when unset.
// In async mode Emit never blocks on the sink; when the buffer is full the oldest
// pending event is dropped and counted.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.metrics.IncPersistFailures()
			p.logger.ErrorContext(ctx, "audit persist failed",
				"action", string(event.Action),
				"record_id", event.RecordID,
				"error", err,
			)
			return fmt.Errorf("persist audit event: %w", err)
		}
		p.metrics.IncEmitted()
		p.metrics.AddPersisted(1)
		return nil
	}

	if p.buffer.Enqueue(event) {
		p.metrics.AddDropped("buffer_full", 1)
		p.logger.WarnContext(ctx, "audit buffer full, dropped oldest event",
			"action", string(event.Action),
			"record_id", event.RecordID,
		)
	}
	p.metrics.IncEmitted()
	p.metrics.SetBufferDepth(p.buffer.Len())
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// List reads events back from stores that support it.
func (p *Publisher) List(ctx context.Context, recordID string) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, fmt.Errorf("audit store does not support listing")
	}
	return lister.ListByRecord(ctx, recordID)
}

// Close stops the worker after draining pending events, waiting at most the
// shutdown timeout. Safe to call more than once.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.cancel == nil {
			return
		}
		p.cancel()
		<-p.done
	})
}
