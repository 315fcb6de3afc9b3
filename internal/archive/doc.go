// Package archive implements the batched submission audit log.
//
// Every result submitted to the ledger is recorded append-only in the
// submissions table, keyed by a per-submission trace ID. Writes are
// batched and flushed on size or interval; a write failure is counted and
// logged but never blocks the relay path.
package archive
