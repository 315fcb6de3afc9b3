package model

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Request is one price-query obligation observed on the ledger.
// Immutable once constructed; removed from the queue when a terminal
// outcome has been submitted.
type Request struct {
	Requester  string    // Opaque requester address from the event
	RequestID  uint64    // Ledger-assigned request ID (not unique; at-least-once delivery)
	Seq        uint64    // Monotonic arrival sequence assigned by the intake
	ObservedAt time.Time // Local timestamp when the event was observed
}

// FetchOutcome is the terminal result of a fetch-with-retry run.
// Exactly one of Value/Err is set: Value on success, Err when retries
// exhausted. Attempts records how many calls were made either way.
type FetchOutcome struct {
	Value    *big.Int // Scaled quote (nil on failure)
	Err      error    // Last error when retries exhausted (nil on success)
	Attempts int      // Total data source calls made
}

// Success reports whether the fetch produced a value.
func (o FetchOutcome) Success() bool {
	return o.Err == nil
}

// SubmittedValue returns the value to submit to the ledger: the fetched
// value on success, or the zero sentinel when no data could be obtained.
func (o FetchOutcome) SubmittedValue() *big.Int {
	if o.Err != nil {
		return new(big.Int)
	}
	return o.Value
}

// Submission is the archive record of one result submitted to the ledger.
type Submission struct {
	TraceID     uuid.UUID // Assigned per submission for audit correlation
	RequestID   uint64
	Requester   string
	Value       *big.Int
	Sentinel    bool // True when the zero "no data" value was submitted
	Attempts    int  // Data source calls spent on this request
	TxHash      string
	ObservedAt  time.Time // When the request event was observed
	SubmittedAt time.Time // When the ledger accepted the transaction
}
