package ledger

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no ping)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrSubscriptionDead = errors.New("subscription dead: reconnect attempts exhausted")
)

// RequestCreatedEvent is a price-feed request observed on the ledger.
// Delivery is at-least-once: duplicates and reordering are possible and
// passed through to the consumer untouched.
type RequestCreatedEvent struct {
	Requester  string    // Requester address
	RequestID  uint64    // Ledger-assigned request ID
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// command is a WebSocket command sent to the ledger node.
type command struct {
	ID     int64       `json:"id"`
	Cmd    string      `json:"cmd"`
	Params interface{} `json:"params"`
}

// subscribeParams are parameters for a subscribe command.
type subscribeParams struct {
	Events []string `json:"events"`
}

// eventEnvelope is the outer frame of every message from the node.
type eventEnvelope struct {
	Type string          `json:"type"` // "request_created", "subscribed", "error"
	Msg  json.RawMessage `json:"msg"`
}

// requestCreatedMsg is the payload of a request_created frame.
type requestCreatedMsg struct {
	Requester string `json:"requester"`
	RequestID uint64 `json:"request_id"`
}

// errorMsg is the payload of an "error" frame.
type errorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// submitResultRequest is the transaction submission wire format. Value is a
// decimal string so arbitrary-precision values survive JSON intact.
type submitResultRequest struct {
	RequestID uint64 `json:"request_id"`
	Value     string `json:"value"`
	Requester string `json:"requester"`
	From      string `json:"from"`
}

// submitResultResponse is the node's acknowledgement.
type submitResultResponse struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}
