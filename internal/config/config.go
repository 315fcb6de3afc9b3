package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Source    SourceConfig    `yaml:"source"`
	Processor ProcessorConfig `yaml:"processor"`
	Queue     QueueConfig     `yaml:"queue"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Database  DatabaseConfig  `yaml:"database"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LedgerConfig holds ledger node access settings.
type LedgerConfig struct {
	WSURL      string `yaml:"ws_url"`  // Event subscription endpoint
	RPCURL     string `yaml:"rpc_url"` // Transaction submission endpoint
	APIKey     string `yaml:"api_key"`
	SubmitFrom string `yaml:"submit_from"` // Fixed submitting identity

	SubmitTimeout time.Duration `yaml:"submit_timeout"`
	SubmitRetries int           `yaml:"submit_retries"`
	SubmitBackoff time.Duration `yaml:"submit_backoff"`

	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnects      int           `yaml:"max_reconnects"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	EventBuffer        int           `yaml:"event_buffer"`
}

// SourceConfig holds external data source settings.
type SourceConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`   // Total fetch attempts per request
	RetryBackoff time.Duration `yaml:"retry_backoff"` // Constant wait between attempts
	ValueScale   int           `yaml:"value_scale"`   // Decimal digits of the fixed-point shift
}

// ProcessorConfig holds queue processor settings.
type ProcessorConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	TickInterval time.Duration `yaml:"tick_interval"`
}

// QueueConfig holds request queue settings.
type QueueConfig struct {
	InitialCapacity int `yaml:"initial_capacity"`
}

// ArchiveConfig holds submission archive writer settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DatabaseConfig holds the archive database connection.
type DatabaseConfig struct {
	Archive DBConfig `yaml:"archive"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds the health/debug HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
