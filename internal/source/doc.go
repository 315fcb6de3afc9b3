// Package source provides the external data source client and the
// bounded-retry fetcher.
//
// The data source returns quotes as decimal strings. Values never touch
// floating point: quotes are parsed exactly and rescaled to integers with
// a fixed fractional-digit shift (10^value_scale) so no precision is lost
// when combined with an 18-decimal value domain on-chain.
package source
