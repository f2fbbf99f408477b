package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/stream"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onStreamCreated        []OnStreamCreated
	onStreamPaused         []OnStreamPaused
	onStreamRestarted      []OnStreamRestarted
	onStreamCanceled       []OnStreamCanceled
	onStreamVoided         []OnStreamVoided
	onRateUpdated          []OnRateUpdated
	onWithdrawal           []OnWithdrawal
	onDelegationGranted    []OnDelegationGranted
	onDelegationRevoked    []OnDelegationRevoked
	onProtocolFeeUpdated   []OnProtocolFeeUpdated
	onFeeCollectorUpdated  []OnFeeCollectorUpdated
	onProtocolOwnerUpdated []OnProtocolOwnerUpdated
	onProtocolFeeWithdrawn []OnProtocolFeeWithdrawn
	onEventsFlushed        []OnEventsFlushed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamPaused); ok {
		r.onStreamPaused = append(r.onStreamPaused, v)
	}
	if v, ok := p.(OnStreamRestarted); ok {
		r.onStreamRestarted = append(r.onStreamRestarted, v)
	}
	if v, ok := p.(OnStreamCanceled); ok {
		r.onStreamCanceled = append(r.onStreamCanceled, v)
	}
	if v, ok := p.(OnStreamVoided); ok {
		r.onStreamVoided = append(r.onStreamVoided, v)
	}
	if v, ok := p.(OnRateUpdated); ok {
		r.onRateUpdated = append(r.onRateUpdated, v)
	}
	if v, ok := p.(OnWithdrawal); ok {
		r.onWithdrawal = append(r.onWithdrawal, v)
	}
	if v, ok := p.(OnDelegationGranted); ok {
		r.onDelegationGranted = append(r.onDelegationGranted, v)
	}
	if v, ok := p.(OnDelegationRevoked); ok {
		r.onDelegationRevoked = append(r.onDelegationRevoked, v)
	}
	if v, ok := p.(OnProtocolFeeUpdated); ok {
		r.onProtocolFeeUpdated = append(r.onProtocolFeeUpdated, v)
	}
	if v, ok := p.(OnFeeCollectorUpdated); ok {
		r.onFeeCollectorUpdated = append(r.onFeeCollectorUpdated, v)
	}
	if v, ok := p.(OnProtocolOwnerUpdated); ok {
		r.onProtocolOwnerUpdated = append(r.onProtocolOwnerUpdated, v)
	}
	if v, ok := p.(OnProtocolFeeWithdrawn); ok {
		r.onProtocolFeeWithdrawn = append(r.onProtocolFeeWithdrawn, v)
	}
	if v, ok := p.(OnEventsFlushed); ok {
		r.onEventsFlushed = append(r.onEventsFlushed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnStreamCreated)(nil)).Elem(), "OnStreamCreated")
	checkInterface(reflect.TypeOf((*OnStreamCanceled)(nil)).Elem(), "OnStreamCanceled")
	checkInterface(reflect.TypeOf((*OnWithdrawal)(nil)).Elem(), "OnWithdrawal")
	checkInterface(reflect.TypeOf((*OnDelegationGranted)(nil)).Elem(), "OnDelegationGranted")
	checkInterface(reflect.TypeOf((*OnProtocolFeeUpdated)(nil)).Elem(), "OnProtocolFeeUpdated")
	checkInterface(reflect.TypeOf((*OnEventsFlushed)(nil)).Elem(), "OnEventsFlushed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, s *stream.Stream) {
	r.mu.RLock()
	plugins := r.onStreamCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCreated(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamPaused emits a stream paused event.
func (r *Registry) EmitStreamPaused(ctx context.Context, s *stream.Stream) {
	r.mu.RLock()
	plugins := r.onStreamPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamPaused(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnStreamPaused failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamRestarted emits a stream restarted event.
func (r *Registry) EmitStreamRestarted(ctx context.Context, s *stream.Stream) {
	r.mu.RLock()
	plugins := r.onStreamRestarted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamRestarted(ctx, s)
		}); err != nil {
			r.logger.Warn("plugin OnStreamRestarted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCanceled emits a stream canceled event.
func (r *Registry) EmitStreamCanceled(ctx context.Context, s *stream.Stream, refunded *uint256.Int) {
	r.mu.RLock()
	plugins := r.onStreamCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCanceled(ctx, s, refunded)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamVoided emits a stream voided event.
func (r *Registry) EmitStreamVoided(ctx context.Context, s *stream.Stream, forgiven *uint256.Int) {
	r.mu.RLock()
	plugins := r.onStreamVoided
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamVoided(ctx, s, forgiven)
		}); err != nil {
			r.logger.Warn("plugin OnStreamVoided failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateUpdated emits a rate updated event.
func (r *Registry) EmitRateUpdated(ctx context.Context, s *stream.Stream, rate *uint256.Int) {
	r.mu.RLock()
	plugins := r.onRateUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateUpdated(ctx, s, rate)
		}); err != nil {
			r.logger.Warn("plugin OnRateUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWithdrawal emits a withdrawal event.
func (r *Registry) EmitWithdrawal(ctx context.Context, s *stream.Stream, net, fee *uint256.Int) {
	r.mu.RLock()
	plugins := r.onWithdrawal
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdrawal(ctx, s, net, fee)
		}); err != nil {
			r.logger.Warn("plugin OnWithdrawal failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDelegationGranted emits a delegation granted event.
func (r *Registry) EmitDelegationGranted(ctx context.Context, streamID uint64, delegate common.Address) {
	r.mu.RLock()
	plugins := r.onDelegationGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDelegationGranted(ctx, streamID, delegate)
		}); err != nil {
			r.logger.Warn("plugin OnDelegationGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDelegationRevoked emits a delegation revoked event.
func (r *Registry) EmitDelegationRevoked(ctx context.Context, streamID uint64, delegate common.Address) {
	r.mu.RLock()
	plugins := r.onDelegationRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDelegationRevoked(ctx, streamID, delegate)
		}); err != nil {
			r.logger.Warn("plugin OnDelegationRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProtocolFeeUpdated emits a protocol fee updated event.
func (r *Registry) EmitProtocolFeeUpdated(ctx context.Context, previousBPS, bps uint16) {
	r.mu.RLock()
	plugins := r.onProtocolFeeUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProtocolFeeUpdated(ctx, previousBPS, bps)
		}); err != nil {
			r.logger.Warn("plugin OnProtocolFeeUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeeCollectorUpdated emits a fee collector updated event.
func (r *Registry) EmitFeeCollectorUpdated(ctx context.Context, previous, collector common.Address) {
	r.mu.RLock()
	plugins := r.onFeeCollectorUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeCollectorUpdated(ctx, previous, collector)
		}); err != nil {
			r.logger.Warn("plugin OnFeeCollectorUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProtocolOwnerUpdated emits a protocol owner updated event.
func (r *Registry) EmitProtocolOwnerUpdated(ctx context.Context, previous, owner common.Address) {
	r.mu.RLock()
	plugins := r.onProtocolOwnerUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProtocolOwnerUpdated(ctx, previous, owner)
		}); err != nil {
			r.logger.Warn("plugin OnProtocolOwnerUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitProtocolFeeWithdrawn emits a protocol fee withdrawn event.
func (r *Registry) EmitProtocolFeeWithdrawn(ctx context.Context, token, to common.Address, amount *uint256.Int) {
	r.mu.RLock()
	plugins := r.onProtocolFeeWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProtocolFeeWithdrawn(ctx, token, to, amount)
		}); err != nil {
			r.logger.Warn("plugin OnProtocolFeeWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEventsFlushed emits an events flushed event.
func (r *Registry) EmitEventsFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onEventsFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEventsFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnEventsFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the withdrawal pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
