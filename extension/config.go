package extension

import "time"

// Config holds the StreamLedger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.streamledger" or
// "streamledger" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// EventBatchSize is the number of domain events to buffer before
	// flushing to the store (default: 100).
	EventBatchSize int `json:"event_batch_size" mapstructure:"event_batch_size" validate:"gte=0" yaml:"event_batch_size"`

	// EventFlushInterval is how frequently the event buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	EventFlushInterval time.Duration `json:"event_flush_interval" mapstructure:"event_flush_interval" yaml:"event_flush_interval"`

	// FeeBPS is the protocol fee in basis points seeded on first start
	// when the store has no fee configuration yet.
	FeeBPS uint16 `json:"fee_bps" mapstructure:"fee_bps" validate:"lte=10000" yaml:"fee_bps"`

	// FeeCollector is the custody address for collected protocol fees.
	FeeCollector string `json:"fee_collector" mapstructure:"fee_collector" validate:"omitempty,eth_addr" yaml:"fee_collector"`

	// Spender is the address the engine acts as when pulling funds from
	// stream senders. Senders grant it a token allowance.
	Spender string `json:"spender" mapstructure:"spender" validate:"omitempty,eth_addr" yaml:"spender"`

	// GroveDriver selects the store backend for a grove.DB provided via
	// WithGroveDB: "postgres", "sqlite", or "mongo" (default: "postgres").
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" validate:"omitempty,oneof=postgres sqlite mongo" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EventBatchSize:     100,
		EventFlushInterval: 5 * time.Second,
		GroveDriver:        "postgres",
	}
}
