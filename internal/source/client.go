package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SourceError represents an HTTP error from the data source.
type SourceError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("data source error %d: %s", e.StatusCode, e.Message)
}

// quoteResponse is the data source wire format.
type quoteResponse struct {
	Price string `json:"price"`
}

// Client fetches quotes from the external data source over HTTP.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new data source client.
func NewClient(url, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// GetQuote performs a single fetch and returns the raw decimal price string.
// An empty or missing price field is an error; parseability is the caller's
// concern (a malformed numeral still consumes a retry attempt there).
func (c *Client) GetQuote(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &SourceError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if quote.Price == "" {
		return "", fmt.Errorf("response missing price field")
	}

	return quote.Price, nil
}
