package streamledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/certificate"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/store"
	"github.com/xraph/streamledger/token"
)

// Engine is the payment-streaming ledger. It owns stream records, the
// delegation registry, protocol metrics, and the accrued-fee liability,
// and directs settlement through the external token, certificate, and
// access-control collaborators.
type Engine struct {
	store   store.Store
	tokens  token.Service
	certs   certificate.Registry
	roles   access.Controller
	plugins *plugin.Registry
	logger  *slog.Logger

	// spender is the address the engine acts as when pulling funds from
	// a stream sender; senders grant it a token allowance.
	spender common.Address

	// Background event flusher
	eventBuffer chan *event.Event
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// Configuration
	eventBatchSize     int
	eventFlushInterval time.Duration
	defaultFeeBPS      uint16
	defaultCollector   common.Address
	nowFn              func() time.Time
}

// New creates a new Engine instance wired to a store and the three
// external collaborators.
func New(s store.Store, tokens token.Service, certs certificate.Registry, roles access.Controller, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		tokens:             tokens,
		certs:              certs,
		roles:              roles,
		plugins:            plugin.NewRegistry(),
		logger:             slog.Default(),
		eventBuffer:        make(chan *event.Event, 10000),
		stopChan:           make(chan struct{}),
		eventBatchSize:     100,
		eventFlushInterval: 5 * time.Second,
		nowFn:              time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSpender sets the address the engine acts as when pulling funds from
// stream senders.
func WithSpender(addr common.Address) Option {
	return func(e *Engine) {
		e.spender = addr
	}
}

// WithEventConfig configures event log flushing parameters.
func WithEventConfig(batchSize int, flushInterval time.Duration) Option {
	return func(e *Engine) {
		e.eventBatchSize = batchSize
		e.eventFlushInterval = flushInterval
	}
}

// WithFeeConfig seeds the protocol fee percentage and collector used when
// the store holds no fee configuration yet.
func WithFeeConfig(bps uint16, collector common.Address) Option {
	return func(e *Engine) {
		e.defaultFeeBPS = bps
		e.defaultCollector = collector
	}
}

// WithClock overrides the time source. Every operation samples the clock
// exactly once and uses that instant for all of its elapsed-time math.
func WithClock(nowFn func() time.Time) Option {
	return func(e *Engine) {
		e.nowFn = nowFn
	}
}

// Start migrates the store, seeds the fee configuration, and begins
// background workers.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	if err := e.seedFeeConfig(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	// Start event flush worker
	e.wg.Add(1)
	go e.eventFlushWorker(ctx)

	e.logger.Info("streamledger started",
		"event_batch_size", e.eventBatchSize,
		"event_flush_interval", e.eventFlushInterval,
		"spender", e.spender.Hex(),
	)

	return nil
}

// Stop shuts down the Engine, flushing any buffered events.
func (e *Engine) Stop() error {
	close(e.stopChan)
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// now returns the single per-operation timestamp snapshot as unix seconds.
func (e *Engine) now() uint64 {
	t := e.nowFn().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

// seedFeeConfig writes the configured defaults when the store has no fee
// configuration yet.
func (e *Engine) seedFeeConfig(ctx context.Context) error {
	cfg, err := e.store.GetFeeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg != nil {
		return nil
	}
	seeded := &fee.Config{
		BPS:       e.defaultFeeBPS,
		Collector: e.defaultCollector,
	}
	return e.store.PutFeeConfig(ctx, seeded)
}

// feeConfig loads the current fee configuration, treating an absent record
// as zero fee with no collector.
func (e *Engine) feeConfig(ctx context.Context) (*fee.Config, error) {
	cfg, err := e.store.GetFeeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return &fee.Config{}, nil
	}
	return cfg, nil
}
