package source

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/avast/retry-go"

	"github.com/rickgao/oracle-relay/internal/model"
)

// QuoteGetter is the single-attempt fetch the retrier wraps.
type QuoteGetter interface {
	GetQuote(ctx context.Context) (string, error)
}

// FetcherConfig holds retry fetcher settings.
type FetcherConfig struct {
	MaxRetries int           // Total attempts per request (default: 3)
	Backoff    time.Duration // Constant wait between attempts (default: 1s)
	ValueScale int           // Fractional-digit shift for normalization (default: 10)
}

// DefaultFetcherConfig returns sensible defaults.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxRetries: 3,
		Backoff:    1 * time.Second,
		ValueScale: 10,
	}
}

// Fetcher wraps the data source with bounded constant-backoff retry.
// Exhausted retries are a terminal outcome, not an error: the caller
// receives a Failure FetchOutcome and decides what to submit.
type Fetcher struct {
	cfg    FetcherConfig
	client QuoteGetter
	logger *slog.Logger
}

// NewFetcher creates a retry fetcher around a data source client.
func NewFetcher(cfg FetcherConfig, client QuoteGetter, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Fetcher{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// FetchWithRetry fetches and normalizes a quote for one request, making at
// most MaxRetries attempts with a constant backoff between them. A response
// that arrives but does not parse as a decimal numeral consumes an attempt
// like any transport failure. Backoff is deliberately flat; callers that
// need jitter or scaling must layer it externally.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req model.Request) model.FetchOutcome {
	var (
		value    *big.Int
		attempts int
	)

	err := retry.Do(
		func() error {
			attempts++

			raw, err := f.client.GetQuote(ctx)
			if err != nil {
				return err
			}

			v, err := Normalize(raw, f.cfg.ValueScale)
			if err != nil {
				return err
			}

			value = v
			return nil
		},
		retry.Attempts(uint(f.cfg.MaxRetries)),
		retry.Delay(f.cfg.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying fetch",
				"request_id", req.RequestID,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		f.logger.Warn("fetch attempts exhausted",
			"request_id", req.RequestID,
			"requester", req.Requester,
			"attempts", attempts,
			"error", err,
		)
		return model.FetchOutcome{Err: err, Attempts: attempts}
	}

	return model.FetchOutcome{Value: value, Attempts: attempts}
}
