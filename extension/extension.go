// Package extension provides the Forge extension adapter for StreamLedger.
//
// It implements the forge.Extension interface to integrate StreamLedger
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions or
// via YAML configuration files under "extensions.streamledger" or
// "streamledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	streamledger "github.com/xraph/streamledger"
	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/certificate"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/store/mongo"
	"github.com/xraph/streamledger/store/postgres"
	"github.com/xraph/streamledger/store/sqlite"
	"github.com/xraph/streamledger/token"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "streamledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token payment-streaming ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts StreamLedger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *streamledger.Engine
	store      store.Store
	groveDB    *grove.DB
	tokens     token.Service
	certs      certificate.Registry
	roles      access.Controller
	engineOpts []streamledger.Option
}

// New creates a new StreamLedger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying StreamLedger engine.
// This is nil until Register is called.
func (e *Extension) Engine() *streamledger.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	// In-memory collaborators unless the caller wired real ones.
	if e.tokens == nil {
		e.tokens = token.NewMemory()
	}
	if e.certs == nil {
		e.certs = certificate.NewMemory()
	}
	if e.roles == nil {
		e.roles = access.NewMemory()
	}

	opts := e.buildEngineOpts()

	eng := streamledger.New(e.store, e.tokens, e.certs, e.roles, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*streamledger.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("streamledger: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("streamledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore selects the store backend. A grove database provided via
// WithGroveDB is wrapped by the backend named in GroveDriver; otherwise
// the in-memory store is used.
func (e *Extension) buildStore() (store.Store, error) {
	if e.groveDB == nil {
		return memory.New(), nil
	}

	switch e.config.GroveDriver {
	case "", "postgres":
		return postgres.New(e.groveDB), nil
	case "sqlite":
		return sqlite.New(e.groveDB), nil
	case "mongo":
		return mongo.New(e.groveDB), nil
	default:
		return nil, fmt.Errorf("streamledger: unknown grove driver %q", e.config.GroveDriver)
	}
}

// buildEngineOpts constructs streamledger.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []streamledger.Option {
	opts := make([]streamledger.Option, 0, len(e.engineOpts)+3)

	if e.config.EventBatchSize > 0 || e.config.EventFlushInterval > 0 {
		batchSize := e.config.EventBatchSize
		flushInterval := e.config.EventFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.EventBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.EventFlushInterval
		}
		opts = append(opts, streamledger.WithEventConfig(batchSize, flushInterval))
	}

	if e.config.FeeBPS > 0 || e.config.FeeCollector != "" {
		opts = append(opts, streamledger.WithFeeConfig(
			e.config.FeeBPS,
			common.HexToAddress(e.config.FeeCollector),
		))
	}

	if e.config.Spender != "" {
		opts = append(opts, streamledger.WithSpender(common.HexToAddress(e.config.Spender)))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("streamledger: configuration is required but not found in config files; " +
				"ensure 'extensions.streamledger' or 'streamledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&e.config); err != nil {
		return fmt.Errorf("streamledger: invalid configuration: %w", err)
	}

	e.Logger().Debug("streamledger: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("event_batch_size", e.config.EventBatchSize),
		forge.F("event_flush_interval", e.config.EventFlushInterval),
		forge.F("fee_bps", e.config.FeeBPS),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.streamledger" first (namespaced pattern).
	if cm.IsSet("extensions.streamledger") {
		if err := cm.Bind("extensions.streamledger", &cfg); err == nil {
			e.Logger().Debug("streamledger: loaded config from file",
				forge.F("key", "extensions.streamledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("streamledger: failed to bind extensions.streamledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "streamledger" key.
	if cm.IsSet("streamledger") {
		if err := cm.Bind("streamledger", &cfg); err == nil {
			e.Logger().Debug("streamledger: loaded config from file",
				forge.F("key", "streamledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("streamledger: failed to bind streamledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.EventBatchSize == 0 {
		cfg.EventBatchSize = defaults.EventBatchSize
	}
	if cfg.EventFlushInterval == 0 {
		cfg.EventFlushInterval = defaults.EventFlushInterval
	}
	if cfg.GroveDriver == "" {
		cfg.GroveDriver = defaults.GroveDriver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.FeeCollector == "" && programmaticConfig.FeeCollector != "" {
		yamlConfig.FeeCollector = programmaticConfig.FeeCollector
	}
	if yamlConfig.Spender == "" && programmaticConfig.Spender != "" {
		yamlConfig.Spender = programmaticConfig.Spender
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.EventBatchSize == 0 && programmaticConfig.EventBatchSize != 0 {
		yamlConfig.EventBatchSize = programmaticConfig.EventBatchSize
	}
	if yamlConfig.EventFlushInterval == 0 && programmaticConfig.EventFlushInterval != 0 {
		yamlConfig.EventFlushInterval = programmaticConfig.EventFlushInterval
	}
	if yamlConfig.FeeBPS == 0 && programmaticConfig.FeeBPS != 0 {
		yamlConfig.FeeBPS = programmaticConfig.FeeBPS
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
