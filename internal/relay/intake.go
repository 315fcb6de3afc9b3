package relay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rickgao/oracle-relay/internal/ledger"
	"github.com/rickgao/oracle-relay/internal/model"
	"github.com/rickgao/oracle-relay/internal/queue"
)

// EventSource delivers observed request_created events.
type EventSource interface {
	Events() <-chan ledger.RequestCreatedEvent
}

// Intake is the sole producer for the request queue: it consumes ledger
// events, stamps each with a monotonic arrival sequence number, and
// enqueues a Request. Duplicate or out-of-order deliveries pass through
// as independent requests.
type Intake struct {
	queue  *queue.Queue[model.Request]
	source EventSource
	logger *slog.Logger

	seq      atomic.Uint64
	enqueued atomic.Int64

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewIntake creates the event intake.
func NewIntake(q *queue.Queue[model.Request], source EventSource, logger *slog.Logger) *Intake {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{
		queue:  q,
		source: source,
		logger: logger,
	}
}

// Enqueued returns how many requests have been appended so far.
func (i *Intake) Enqueued() int64 {
	return i.enqueued.Load()
}

// Start begins consuming events.
func (i *Intake) Start(ctx context.Context) error {
	i.ctx, i.cancel = context.WithCancel(ctx)

	i.wg.Add(1)
	go i.run()

	i.logger.Info("event intake started")
	return nil
}

// Stop shuts down the intake.
func (i *Intake) Stop(ctx context.Context) error {
	if i.cancel != nil {
		i.cancel()
	}

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		i.logger.Info("event intake stopped")
		return nil
	case <-ctx.Done():
		i.logger.Warn("event intake stop timed out")
		return ctx.Err()
	}
}

func (i *Intake) run() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		case ev, ok := <-i.source.Events():
			if !ok {
				i.logger.Info("event source closed")
				return
			}

			req := model.Request{
				Requester:  ev.Requester,
				RequestID:  ev.RequestID,
				Seq:        i.seq.Add(1),
				ObservedAt: ev.ReceivedAt,
			}

			if !i.queue.Enqueue(req) {
				i.logger.Warn("request queue closed, dropping request",
					"request_id", req.RequestID,
					"requester", req.Requester,
				)
				continue
			}
			i.enqueued.Add(1)

			i.logger.Debug("request queued",
				"request_id", req.RequestID,
				"requester", req.Requester,
				"seq", req.Seq,
			)
		}
	}
}
