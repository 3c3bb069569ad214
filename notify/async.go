package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/semmodel/errors"
	"github.com/c360/semmodel/metric"
)

// Async hands events to a bounded queue drained by worker goroutines. When
// the queue is full the event is dropped, so a slow sink never stalls a
// schema mutation.
type Async struct {
	name    string
	next    Notifier
	workers int
	queue   chan Event
	logger  *slog.Logger
	metrics *metric.Metrics
	timeout time.Duration

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	wg          sync.WaitGroup

	queued    int64
	delivered int64
	failed    int64
	dropped   int64
}

// AsyncOption configures an Async notifier.
type AsyncOption func(*Async)

// WithName labels the sink in metrics and logs.
func WithName(name string) AsyncOption {
	return func(a *Async) { a.name = name }
}

// WithWorkers sets the number of delivery goroutines. With more than one,
// events may be delivered out of order; Event.Seq restores it.
func WithWorkers(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithQueueSize bounds the pending event queue.
func WithQueueSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.queue = make(chan Event, n)
		}
	}
}

// WithDeliveryTimeout bounds each call to the wrapped notifier.
func WithDeliveryTimeout(d time.Duration) AsyncOption {
	return func(a *Async) { a.timeout = d }
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records delivered and dropped events.
func WithMetrics(m *metric.Metrics) AsyncOption {
	return func(a *Async) { a.metrics = m }
}

// NewAsync wraps next. Call Start before the first Notify.
func NewAsync(next Notifier, opts ...AsyncOption) *Async {
	a := &Async{
		name:    "async",
		next:    next,
		workers: 1,
		queue:   make(chan Event, 1024),
		logger:  slog.Default(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the workers. They exit when ctx is cancelled or Stop is called.
func (a *Async) Start(ctx context.Context) error {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	if a.started {
		return errors.WrapInvalid(errors.New("already started"), "notify.Async", "Start", "start workers")
	}
	for i := 0; i < a.workers; i++ {
		a.wg.Add(1)
		go a.worker(ctx)
	}
	a.started = true
	return nil
}

// Notify enqueues evt without blocking. A full queue drops the event and
// returns ErrQueueFull.
func (a *Async) Notify(_ context.Context, evt Event) error {
	a.lifecycleMu.Lock()
	defer a.lifecycleMu.Unlock()

	if !a.started || a.stopped {
		a.drop()
		return errors.WrapTransient(errors.ErrNoConnection, "notify.Async", "Notify", "enqueue event")
	}

	select {
	case a.queue <- evt:
		atomic.AddInt64(&a.queued, 1)
		return nil
	default:
		a.drop()
		return errors.WrapTransient(errors.ErrQueueFull, "notify.Async", "Notify", "enqueue event")
	}
}

func (a *Async) drop() {
	atomic.AddInt64(&a.dropped, 1)
	if a.metrics != nil {
		a.metrics.RecordEventDropped(a.name)
	}
}

// Stop closes the queue and waits up to timeout for pending events to drain.
func (a *Async) Stop(timeout time.Duration) error {
	a.lifecycleMu.Lock()
	if !a.started || a.stopped {
		a.lifecycleMu.Unlock()
		return nil
	}
	a.stopped = true
	close(a.queue)
	a.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.WrapTransient(errors.ErrConnectionTimeout, "notify.Async", "Stop", "drain queue")
	}
}

// AsyncStats is a snapshot of delivery counters.
type AsyncStats struct {
	Queued    int64 `json:"queued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Pending   int   `json:"pending"`
}

// Stats returns the current counters.
func (a *Async) Stats() AsyncStats {
	return AsyncStats{
		Queued:    atomic.LoadInt64(&a.queued),
		Delivered: atomic.LoadInt64(&a.delivered),
		Failed:    atomic.LoadInt64(&a.failed),
		Dropped:   atomic.LoadInt64(&a.dropped),
		Pending:   len(a.queue),
	}
}

func (a *Async) worker(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.queue:
			if !ok {
				return
			}
			a.deliver(ctx, evt)
		}
	}
}

func (a *Async) deliver(ctx context.Context, evt Event) {
	dctx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.next.Notify(dctx, evt); err != nil {
		atomic.AddInt64(&a.failed, 1)
		a.logger.Warn("event delivery failed",
			"sink", a.name,
			"event", evt.Type,
			"id", evt.ID,
			"error", err)
		if a.metrics != nil {
			a.metrics.RecordEventDropped(a.name)
		}
		return
	}

	atomic.AddInt64(&a.delivered, 1)
	if a.metrics != nil {
		a.metrics.RecordEventPublished(a.name)
	}
}
