// Package model defines shared data types used across the oracle relay.
//
// Conventions:
//   - Values: scaled integers held in *big.Int (raw quote × 10^value_scale);
//     the reserved value 0 means "no data available"
//   - Timestamps: time.Time on the hot path, int64 microseconds in the archive
//   - IDs: uint64 for ledger request IDs, uuid.UUID for submission trace IDs
package model
