package worker

import (
	"context"
	"log/slog"
	"time"

	audit "electiondesk/pkg/platform/audit"
	auditmetrics "electiondesk/pkg/platform/audit/metrics"
	"electiondesk/pkg/platform/circuit"
)

// Source yields buffered events in FIFO order.
type Source interface {
	DequeueBatch(n int) []audit.Event
	Len() int
}

// Worker drains a Source into a Store in batches. Sink failures are logged and
// counted; they never stop the loop.
type Worker struct {
	source          Source
	store           audit.Store
	wake            <-chan struct{}
	batchSize       int
	interval        time.Duration
	shutdownTimeout time.Duration
	breaker         *circuit.Breaker
	logger          *slog.Logger
	metrics         *auditmetrics.Metrics
}

type Option func(*Worker)

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithShutdownTimeout bounds the final drain once Run's context is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.shutdownTimeout = d
		}
	}
}

// WithWake lets the producer trigger a drain before the next tick.
func WithWake(wake <-chan struct{}) Option {
	return func(w *Worker) {
		w.wake = wake
	}
}

// WithBreaker skips sink writes while the breaker is open.
func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) {
		w.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func NewWorker(source Source, store audit.Store, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		store:     store,
		batchSize:       100,
		interval:        time.Second,
		shutdownTimeout: 5 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains on every tick or wake signal. Cancelling ctx stops routine drains
// between batches and starts the shutdown clock: a batch already being written
// may finish, then a final drain runs. Writes still pending when the shutdown
// timeout expires are cancelled and the rest of the source is abandoned.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	writeCtx, cancelWrites := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWrites()
	stopClock := context.AfterFunc(ctx, func() {
		time.AfterFunc(w.shutdownTimeout, cancelWrites)
	})
	defer stopClock()

	for {
		select {
		case <-ctx.Done():
			w.finalDrain(writeCtx)
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx, writeCtx)
		case <-w.wake:
			w.drain(ctx, writeCtx)
		}
	}
}

// Drain flushes until the source is empty or ctx is done and returns the
// number of events persisted. Events not yet dequeued stay in the source.
func (w *Worker) Drain(ctx context.Context) int {
	return w.drain(ctx, ctx)
}

func (w *Worker) drain(stop, writeCtx context.Context) int {
	persisted := 0
	for stop.Err() == nil {
		batch := w.source.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			w.metrics.SetBufferDepth(0)
			return persisted
		}
		persisted += w.flush(writeCtx, batch)
		w.metrics.SetBufferDepth(w.source.Len())
	}
	return persisted
}

func (w *Worker) finalDrain(ctx context.Context) {
	persisted := w.Drain(ctx)
	if left := w.source.Len(); left > 0 {
		w.metrics.AddDropped("shutdown_timeout", left)
		w.logger.ErrorContext(ctx, "audit drain timed out on shutdown",
			"persisted", persisted,
			"abandoned", left,
			"timeout", w.shutdownTimeout.String(),
		)
	}
}

func (w *Worker) flush(ctx context.Context, batch []audit.Event) int {
	if w.breaker != nil && !w.breaker.Allow() {
		w.metrics.AddDropped("circuit_open", len(batch))
		w.logger.WarnContext(ctx, "audit sink circuit open, dropping batch",
			"breaker", w.breaker.Name(),
			"events", len(batch),
		)
		return 0
	}

	if err := w.write(ctx, batch); err != nil {
		w.metrics.IncPersistFailures()
		w.metrics.AddDropped("persist_failed", len(batch))
		w.logger.ErrorContext(ctx, "audit sink write failed",
			"events", len(batch),
			"first_action", string(batch[0].Action),
			"first_record_id", batch[0].RecordID,
			"error", err,
		)
		if w.breaker != nil {
			if _, change := w.breaker.RecordFailure(); change.Opened {
				w.metrics.SetCircuitBreakerState(true)
				w.logger.WarnContext(ctx, "audit sink circuit opened", "breaker", w.breaker.Name())
			}
		}
		return 0
	}

	if w.breaker != nil {
		if _, change := w.breaker.RecordSuccess(); change.Closed {
			w.metrics.SetCircuitBreakerState(false)
			w.logger.InfoContext(ctx, "audit sink circuit closed", "breaker", w.breaker.Name())
		}
	}
	w.metrics.AddPersisted(len(batch))
	return len(batch)
}

func (w *Worker) write(ctx context.Context, batch []audit.Event) error {
	if bs, ok := w.store.(audit.BatchStore); ok {
		return bs.AppendBatch(ctx, batch)
	}
	for _, e := range batch {
		if err := w.store.Append(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
