// Package relay implements the request-queue engine.
//
// The engine has two halves:
//   - Intake: consumes request_created events from the ledger subscriber,
//     assigns arrival sequence numbers, and appends to the request queue
//   - Processor: wakes on a fixed tick, drains up to batch_size requests,
//     and for each one sequentially fetches a quote (bounded retry) and
//     submits the result transaction
//
// Processing inside a batch is strictly serialized: the submitting identity
// can only have one transaction in flight. A shutdown signal is observed
// between ticks; the in-flight batch always runs to completion so no
// submission is abandoned partway.
package relay
