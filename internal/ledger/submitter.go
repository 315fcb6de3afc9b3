package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go"
)

// NodeError represents an error response from the ledger node.
type NodeError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("ledger node error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the submission should be retried.
func (e *NodeError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// SubmitterConfig holds transaction submission settings.
type SubmitterConfig struct {
	RPCURL  string
	APIKey  string
	From    string // Fixed submitting identity
	Timeout time.Duration

	MaxRetries int           // Total submission attempts (default: 3)
	Backoff    time.Duration // Constant wait between attempts
}

// SubmitterStats contains runtime statistics.
type SubmitterStats struct {
	Submitted int64
	Retries   int64
	Rejected  int64
}

// Submitter sends submit-result transactions from a single fixed identity.
// Submissions are serialized: the submitting account cannot have two
// transactions in flight at once.
type Submitter struct {
	cfg        SubmitterConfig
	httpClient *http.Client
	logger     *slog.Logger

	submitMu sync.Mutex

	mu    sync.Mutex
	stats SubmitterStats
}

// NewSubmitter creates a new transaction submitter.
func NewSubmitter(cfg SubmitterConfig, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Submitter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Stats returns current statistics.
func (s *Submitter) Stats() SubmitterStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SubmitResult submits one result transaction and returns the tx hash.
// Retryable node errors (5xx, 429) are retried with a constant backoff up
// to MaxRetries total attempts; other rejections fail immediately.
func (s *Submitter) SubmitResult(ctx context.Context, requestID uint64, value *big.Int, requester string) (string, error) {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	var (
		txHash  string
		lastErr error
	)

	err := retry.Do(
		func() error {
			hash, err := s.submit(ctx, requestID, value, requester)
			if err != nil {
				lastErr = err
				if nodeErr, ok := err.(*NodeError); ok && !nodeErr.IsRetryable() {
					return retry.Unrecoverable(err)
				}
				return err
			}
			txHash = hash
			return nil
		},
		retry.Attempts(uint(s.cfg.MaxRetries)),
		retry.Delay(s.cfg.Backoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.mu.Lock()
			s.stats.Retries++
			s.mu.Unlock()
			s.logger.Debug("retrying submission",
				"request_id", requestID,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		s.mu.Lock()
		s.stats.Rejected++
		s.mu.Unlock()
		// Surface the typed node error rather than the retry wrapper.
		if lastErr != nil {
			return "", lastErr
		}
		return "", err
	}

	s.mu.Lock()
	s.stats.Submitted++
	s.mu.Unlock()
	return txHash, nil
}

// submit performs a single submission attempt.
func (s *Submitter) submit(ctx context.Context, requestID uint64, value *big.Int, requester string) (string, error) {
	payload := submitResultRequest{
		RequestID: requestID,
		Value:     value.String(),
		Requester: requester,
		From:      s.cfg.From,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}

	url := s.cfg.RPCURL + "/tx/submit-result"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &NodeError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	var result submitResultResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return result.TxHash, nil
}
