package relay

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/oracle-relay/internal/model"
	"github.com/rickgao/oracle-relay/internal/queue"
)

// QuoteFetcher produces a terminal outcome for one request.
type QuoteFetcher interface {
	FetchWithRetry(ctx context.Context, req model.Request) model.FetchOutcome
}

// ResultSubmitter sends a result transaction to the ledger.
type ResultSubmitter interface {
	SubmitResult(ctx context.Context, requestID uint64, value *big.Int, requester string) (string, error)
}

// SubmissionHandler receives records of completed submissions.
type SubmissionHandler interface {
	HandleSubmission(sub model.Submission) error
}

// SubmissionHandlerFunc is a function adapter for SubmissionHandler.
type SubmissionHandlerFunc func(model.Submission) error

func (f SubmissionHandlerFunc) HandleSubmission(s model.Submission) error {
	return f(s)
}

// ProcessorConfig holds processor settings.
type ProcessorConfig struct {
	BatchSize    int           // Max requests drained per tick (default: 10)
	TickInterval time.Duration // Wake interval (default: 3s)
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BatchSize:    10,
		TickInterval: 3 * time.Second,
	}
}

// ProcessorStats contains runtime statistics.
type ProcessorStats struct {
	Ticks        int64 // Ticks that drained at least one request
	Processed    int64 // Requests with a submitted outcome
	Succeeded    int64 // Real values submitted
	Sentinels    int64 // Zero "no data" values submitted
	SubmitErrors int64 // Requests dropped after submission failure
}

// Processor drains the request queue in bounded batches on a fixed tick,
// fetching and submitting each request sequentially.
type Processor struct {
	cfg       ProcessorConfig
	queue     *queue.Queue[model.Request]
	fetcher   QuoteFetcher
	submitter ResultSubmitter
	handler   SubmissionHandler // Optional archive hook
	logger    *slog.Logger

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats ProcessorStats
}

// NewProcessor creates a queue processor.
func NewProcessor(
	cfg ProcessorConfig,
	q *queue.Queue[model.Request],
	fetcher QuoteFetcher,
	submitter ResultSubmitter,
	handler SubmissionHandler,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg:       cfg,
		queue:     q,
		fetcher:   fetcher,
		submitter: submitter,
		handler:   handler,
		logger:    logger,
	}
}

// Start begins the processing loop.
func (p *Processor) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("queue processor started",
		"batch_size", p.cfg.BatchSize,
		"tick_interval", p.cfg.TickInterval,
	)
	return nil
}

// Stop shuts the processor down, letting any in-flight batch finish.
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("queue processor stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("queue processor stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (p *Processor) Stats() ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// run is the tick loop. The shutdown signal is observed between ticks only,
// so a batch that has started always runs to completion.
func (p *Processor) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.processBatch()
		}
	}
}

// processBatch drains one batch and handles each request sequentially.
// It runs on a detached context: cancellation must not abandon a request
// between fetch and submission.
func (p *Processor) processBatch() {
	// No new dequeues once shutdown has been signalled.
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	batch := p.queue.DequeueUpTo(p.cfg.BatchSize)
	if len(batch) == 0 {
		return
	}

	start := time.Now()
	ctx := context.WithoutCancel(p.ctx)

	p.mu.Lock()
	p.stats.Ticks++
	p.mu.Unlock()

	for _, req := range batch {
		p.processRequest(ctx, req)
	}

	p.logger.Debug("batch complete",
		"count", len(batch),
		"remaining", p.queue.Len(),
		"duration", time.Since(start),
	)
}

// processRequest fetches and submits a single request. Failure to fetch is
// an outcome, not an error: the zero sentinel is submitted so the requester
// observes "no data available" instead of nothing.
func (p *Processor) processRequest(ctx context.Context, req model.Request) {
	outcome := p.fetcher.FetchWithRetry(ctx, req)
	value := outcome.SubmittedValue()

	txHash, err := p.submitter.SubmitResult(ctx, req.RequestID, value, req.Requester)
	if err != nil {
		// The request is dropped, but never silently: the full identity
		// goes to the log for operator follow-up.
		p.logger.Error("result submission failed, dropping request",
			"request_id", req.RequestID,
			"requester", req.Requester,
			"seq", req.Seq,
			"value", value,
			"error", err,
		)
		p.mu.Lock()
		p.stats.SubmitErrors++
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	p.stats.Processed++
	if outcome.Success() {
		p.stats.Succeeded++
	} else {
		p.stats.Sentinels++
	}
	p.mu.Unlock()

	if p.handler != nil {
		sub := model.Submission{
			TraceID:     uuid.New(),
			RequestID:   req.RequestID,
			Requester:   req.Requester,
			Value:       value,
			Sentinel:    !outcome.Success(),
			Attempts:    outcome.Attempts,
			TxHash:      txHash,
			ObservedAt:  req.ObservedAt,
			SubmittedAt: time.Now(),
		}
		if err := p.handler.HandleSubmission(sub); err != nil {
			p.logger.Warn("submission handler failed",
				"request_id", req.RequestID,
				"trace_id", sub.TraceID,
				"error", err,
			)
		}
	}
}
