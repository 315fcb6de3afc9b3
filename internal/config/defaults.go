package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSubmitTimeout      = 30 * time.Second
	DefaultSubmitRetries      = 3
	DefaultSubmitBackoff      = 500 * time.Millisecond
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultMaxReconnects      = 10
	DefaultPingInterval       = 15 * time.Second
	DefaultReadTimeout        = 30 * time.Second
	DefaultEventBuffer        = 1024
	DefaultSourceTimeout      = 10 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 1 * time.Second
	DefaultValueScale         = 10
	DefaultBatchSize          = 10
	DefaultTickInterval       = 3 * time.Second
	DefaultQueueCapacity      = 64
	DefaultArchiveBatchSize   = 100
	DefaultArchiveFlush       = 1 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultMetricsPort        = 8080
	DefaultMetricsPath        = "/health"
)

func (c *RelayConfig) applyDefaults() {
	// Ledger defaults
	if c.Ledger.SubmitTimeout == 0 {
		c.Ledger.SubmitTimeout = DefaultSubmitTimeout
	}
	if c.Ledger.SubmitRetries == 0 {
		c.Ledger.SubmitRetries = DefaultSubmitRetries
	}
	if c.Ledger.SubmitBackoff == 0 {
		c.Ledger.SubmitBackoff = DefaultSubmitBackoff
	}
	if c.Ledger.ReconnectBaseDelay == 0 {
		c.Ledger.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Ledger.ReconnectMaxDelay == 0 {
		c.Ledger.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Ledger.MaxReconnects == 0 {
		c.Ledger.MaxReconnects = DefaultMaxReconnects
	}
	if c.Ledger.PingInterval == 0 {
		c.Ledger.PingInterval = DefaultPingInterval
	}
	if c.Ledger.ReadTimeout == 0 {
		c.Ledger.ReadTimeout = DefaultReadTimeout
	}
	if c.Ledger.EventBuffer == 0 {
		c.Ledger.EventBuffer = DefaultEventBuffer
	}

	// Source defaults
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Source.MaxRetries == 0 {
		c.Source.MaxRetries = DefaultMaxRetries
	}
	if c.Source.RetryBackoff == 0 {
		c.Source.RetryBackoff = DefaultRetryBackoff
	}
	if c.Source.ValueScale == 0 {
		c.Source.ValueScale = DefaultValueScale
	}

	// Processor defaults
	if c.Processor.BatchSize == 0 {
		c.Processor.BatchSize = DefaultBatchSize
	}
	if c.Processor.TickInterval == 0 {
		c.Processor.TickInterval = DefaultTickInterval
	}

	// Queue defaults
	if c.Queue.InitialCapacity == 0 {
		c.Queue.InitialCapacity = DefaultQueueCapacity
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultArchiveBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultArchiveFlush
	}
	if c.Archive.Enabled {
		applyDBDefaults(&c.Database.Archive)
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
