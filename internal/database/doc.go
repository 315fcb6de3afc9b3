// Package database provides connection pool management for PostgreSQL.
//
// The relay keeps a single pool for the submission archive. The archive is
// optional; when disabled no pool is created.
package database
