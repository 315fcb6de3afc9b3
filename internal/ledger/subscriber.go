package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SubscriberConfig holds event subscription settings.
type SubscriberConfig struct {
	URL    string // WebSocket endpoint of the ledger node
	APIKey string

	ReconnectBaseDelay time.Duration // First reconnect wait (default: 1s)
	ReconnectMaxDelay  time.Duration // Backoff cap (default: 60s)
	MaxReconnects      int           // Consecutive failures before the subscription is declared dead
	PingInterval       time.Duration // Keepalive ping cadence
	ReadTimeout        time.Duration // Per-read deadline
	EventBuffer        int           // Outbound event channel capacity
}

// SubscriberStats contains runtime statistics.
type SubscriberStats struct {
	EventsReceived int64
	ParseErrors    int64
	Reconnects     int64
	Dropped        int64
}

// Subscriber maintains a WebSocket subscription to request_created events.
// It reconnects with exponential backoff; after MaxReconnects consecutive
// connection failures it gives up and reports on Fatal(): the relay must
// not keep running silently with dead event intake.
type Subscriber struct {
	cfg    SubscriberConfig
	logger *slog.Logger

	events chan RequestCreatedEvent
	fatal  chan error

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu        sync.RWMutex
	connected bool
	stats     SubscriberStats
}

// NewSubscriber creates a new event subscriber.
func NewSubscriber(cfg SubscriberConfig, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 1
	}
	return &Subscriber{
		cfg:    cfg,
		logger: logger,
		events: make(chan RequestCreatedEvent, cfg.EventBuffer),
		fatal:  make(chan error, 1),
	}
}

// Events returns the channel of observed request_created events.
func (s *Subscriber) Events() <-chan RequestCreatedEvent {
	return s.events
}

// Fatal returns a channel that yields at most one error, emitted when the
// subscription is declared dead.
func (s *Subscriber) Fatal() <-chan error {
	return s.fatal
}

// IsConnected returns the current connection state.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Stats returns current statistics.
func (s *Subscriber) Stats() SubscriberStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Start begins the subscription loop.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("ledger subscriber started",
		"url", s.cfg.URL,
		"max_reconnects", s.cfg.MaxReconnects,
	)
	return nil
}

// Stop gracefully shuts down the subscriber.
func (s *Subscriber) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("ledger subscriber stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("ledger subscriber stop timed out")
		return ctx.Err()
	}
}

// run owns the connect/read/reconnect cycle.
func (s *Subscriber) run() {
	defer s.wg.Done()

	delay := s.cfg.ReconnectBaseDelay
	failures := 0

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		conn, err := s.connect()
		if err != nil {
			failures++
			s.mu.Lock()
			s.stats.Reconnects++
			s.mu.Unlock()

			if failures > s.cfg.MaxReconnects {
				s.logger.Error("subscription dead",
					"failures", failures,
					"error", err,
				)
				s.fatal <- fmt.Errorf("%w: %v", ErrSubscriptionDead, err)
				return
			}

			s.logger.Warn("ledger connect failed",
				"attempt", failures,
				"backoff", delay,
				"error", err,
			)

			select {
			case <-s.ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > s.cfg.ReconnectMaxDelay {
				delay = s.cfg.ReconnectMaxDelay
			}
			continue
		}

		// Connected: reset the backoff window.
		failures = 0
		delay = s.cfg.ReconnectBaseDelay
		s.setConnected(true)

		err = s.readLoop(conn)
		s.setConnected(false)
		conn.Close()

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.logger.Warn("ledger connection lost", "error", err)
	}
}

// connect dials the node and sends the subscribe command.
func (s *Subscriber) connect() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if s.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(s.ctx, s.cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial ledger: %w", err)
	}

	sub := command{
		ID:  1,
		Cmd: "subscribe",
		Params: subscribeParams{
			Events: []string{"request_created"},
		},
	}
	data, err := json.Marshal(sub)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshal subscribe: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	// Server pings keep the read deadline fresh.
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	s.logger.Debug("ledger websocket connected", "url", s.cfg.URL)
	return conn, nil
}

// readLoop reads frames until the connection errors or the subscriber stops.
func (s *Subscriber) readLoop(conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	// Keepalive pings; a stale connection surfaces as a read deadline error.
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-s.ctx.Done():
				// Unblock the pending read so readLoop can exit.
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
					s.logger.Debug("failed to send ping", "error", err)
				}
			}
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			return err
		}

		s.handleFrame(data, receivedAt)
	}
}

// handleFrame decodes one frame and delivers request_created events.
func (s *Subscriber) handleFrame(data []byte, receivedAt time.Time) {
	var envelope eventEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn("failed to parse ledger frame", "error", err)
		s.mu.Lock()
		s.stats.ParseErrors++
		s.mu.Unlock()
		return
	}

	switch envelope.Type {
	case "request_created":
		var msg requestCreatedMsg
		if err := json.Unmarshal(envelope.Msg, &msg); err != nil {
			s.logger.Warn("failed to parse request_created", "error", err)
			s.mu.Lock()
			s.stats.ParseErrors++
			s.mu.Unlock()
			return
		}

		event := RequestCreatedEvent{
			Requester:  msg.Requester,
			RequestID:  msg.RequestID,
			ReceivedAt: receivedAt,
		}

		select {
		case s.events <- event:
			s.mu.Lock()
			s.stats.EventsReceived++
			s.mu.Unlock()
		case <-s.ctx.Done():
		default:
			s.logger.Warn("event buffer full, dropping event",
				"request_id", msg.RequestID,
			)
			s.mu.Lock()
			s.stats.Dropped++
			s.mu.Unlock()
		}

	case "subscribed":
		s.logger.Debug("subscription confirmed")

	case "error":
		var msg errorMsg
		if err := json.Unmarshal(envelope.Msg, &msg); err == nil {
			s.logger.Warn("ledger reported error", "code", msg.Code, "message", msg.Message)
		} else {
			s.logger.Warn("ledger reported error", "raw", string(envelope.Msg))
		}

	default:
		s.logger.Debug("skipping frame type", "type", envelope.Type)
	}
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
