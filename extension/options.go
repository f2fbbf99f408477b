package extension

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	streamledger "github.com/xraph/streamledger"
	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/certificate"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/token"
)

// Option configures the StreamLedger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithTokenService sets the token transfer service.
// If not called, an in-memory service is used.
func WithTokenService(svc token.Service) Option {
	return func(e *Extension) {
		e.tokens = svc
	}
}

// WithCertificateRegistry sets the ownership certificate registry.
// If not called, an in-memory registry is used.
func WithCertificateRegistry(r certificate.Registry) Option {
	return func(e *Extension) {
		e.certs = r
	}
}

// WithAccessController sets the role controller.
// If not called, an in-memory controller is used.
func WithAccessController(c access.Controller) Option {
	return func(e *Extension) {
		e.roles = c
	}
}

// WithEngineOption passes a streamledger.Option through to the underlying engine.
func WithEngineOption(opt streamledger.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, streamledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithEventBatchSize sets the number of domain events to buffer before flushing.
func WithEventBatchSize(size int) Option {
	return func(e *Extension) { e.config.EventBatchSize = size }
}

// WithEventFlushInterval sets how frequently the event buffer is flushed.
func WithEventFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.EventFlushInterval = d }
}

// WithFee seeds the protocol fee configuration for first start.
func WithFee(bps uint16, collector common.Address) Option {
	return func(e *Extension) {
		e.config.FeeBPS = bps
		e.config.FeeCollector = collector.Hex()
	}
}

// WithSpender sets the allowance spender address for the engine.
func WithSpender(addr common.Address) Option {
	return func(e *Extension) { e.config.Spender = addr.Hex() }
}

// WithGroveDB sets the grove database to back the store. The store backend
// is selected by the GroveDriver config field.
func WithGroveDB(db *grove.DB) Option {
	return func(e *Extension) {
		e.groveDB = db
	}
}
