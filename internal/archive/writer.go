package archive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/oracle-relay/internal/model"
)

// WriterConfig holds archive writer settings.
type WriterConfig struct {
	BatchSize     int           // Rows per flush (default: 100)
	FlushInterval time.Duration // Max time a row waits buffered (default: 1s)
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     100,
		FlushInterval: 1 * time.Second,
	}
}

// WriterMetrics contains writer statistics.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}

// submissionRow is the database shape of a submission record.
type submissionRow struct {
	TraceID     uuid.UUID
	RequestID   int64
	Requester   string
	Value       string // Numeric column; string preserves arbitrary precision
	Sentinel    bool
	Attempts    int
	TxHash      string
	ObservedAt  int64 // µs since epoch
	SubmittedAt int64 // µs since epoch
}

// batchSender is the subset of pgxpool.Pool the writer needs.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Writer records submissions to the archive database in batches. It
// implements the processor's SubmissionHandler.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	db batchSender

	// Batching
	batch       []submissionRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewWriter creates a new archive writer.
func NewWriter(cfg WriterConfig, db batchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]submissionRow, 0, cfg.BatchSize),
	}
}

// Start begins the periodic flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
	}

	// Final flush on the caller's context: w.ctx is cancelled by now, and
	// rows buffered at shutdown still have to land.
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// HandleSubmission buffers one submission record, flushing when the batch
// fills. Never returns an error: archive problems are logged and counted,
// not pushed back onto the relay path.
func (w *Writer) HandleSubmission(sub model.Submission) error {
	row := w.transform(sub)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
	return nil
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// transform converts a Submission to its row shape.
func (w *Writer) transform(sub model.Submission) submissionRow {
	return submissionRow{
		TraceID:     sub.TraceID,
		RequestID:   int64(sub.RequestID),
		Requester:   sub.Requester,
		Value:       sub.Value.String(),
		Sentinel:    sub.Sentinel,
		Attempts:    sub.Attempts,
		TxHash:      sub.TxHash,
		ObservedAt:  sub.ObservedAt.UnixMicro(),
		SubmittedAt: sub.SubmittedAt.UnixMicro(),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]submissionRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed submissions",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []submissionRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO submissions (trace_id, request_id, requester, value, sentinel, attempts, tx_hash, observed_at, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (trace_id) DO NOTHING
		`, r.TraceID, r.RequestID, r.Requester, r.Value, r.Sentinel, r.Attempts, r.TxHash, r.ObservedAt, r.SubmittedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
