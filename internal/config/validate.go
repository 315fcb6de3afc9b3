package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Ledger.WSURL == "" {
		return errors.New("ledger.ws_url is required")
	}
	if c.Ledger.RPCURL == "" {
		return errors.New("ledger.rpc_url is required")
	}
	if c.Ledger.SubmitFrom == "" {
		return errors.New("ledger.submit_from is required")
	}
	if c.Ledger.SubmitRetries < 1 {
		return errors.New("ledger.submit_retries must be >= 1")
	}

	if c.Source.URL == "" {
		return errors.New("source.url is required")
	}
	if c.Source.MaxRetries < 1 {
		return errors.New("source.max_retries must be >= 1")
	}
	if c.Source.ValueScale < 0 {
		return errors.New("source.value_scale must be >= 0")
	}

	if c.Processor.BatchSize < 1 {
		return errors.New("processor.batch_size must be >= 1")
	}
	if c.Processor.TickInterval <= 0 {
		return errors.New("processor.tick_interval must be positive")
	}

	if c.Queue.InitialCapacity < 1 {
		return errors.New("queue.initial_capacity must be >= 1")
	}

	if c.Archive.Enabled {
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if err := c.Database.Archive.validate("database.archive"); err != nil {
			return err
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
