// Package observability provides a metrics extension for StreamLedger that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/stream"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated        = (*MetricsExtension)(nil)
	_ plugin.OnStreamPaused         = (*MetricsExtension)(nil)
	_ plugin.OnStreamRestarted      = (*MetricsExtension)(nil)
	_ plugin.OnStreamCanceled       = (*MetricsExtension)(nil)
	_ plugin.OnStreamVoided         = (*MetricsExtension)(nil)
	_ plugin.OnRateUpdated          = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawal           = (*MetricsExtension)(nil)
	_ plugin.OnDelegationGranted    = (*MetricsExtension)(nil)
	_ plugin.OnDelegationRevoked    = (*MetricsExtension)(nil)
	_ plugin.OnProtocolFeeUpdated   = (*MetricsExtension)(nil)
	_ plugin.OnProtocolFeeWithdrawn = (*MetricsExtension)(nil)
	_ plugin.OnEventsFlushed        = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a StreamLedger plugin to automatically track streaming metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Stream lifecycle metrics
	StreamsCreated   Counter
	StreamsPaused    Counter
	StreamsRestarted Counter
	StreamsCanceled  Counter
	StreamsVoided    Counter
	RateUpdates      Counter

	// Withdrawal metrics
	Withdrawals      Counter
	WithdrawalAmount Histogram
	FeesCollected    Histogram

	// Delegation metrics
	DelegationsGranted Counter
	DelegationsRevoked Counter

	// Protocol metrics
	FeeUpdates     Counter
	FeeWithdrawals Counter

	// Event log metrics
	EventBatchSize    Histogram
	EventFlushLatency Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Stream lifecycle metrics
		StreamsCreated:   factory.Counter("streamledger.stream.created"),
		StreamsPaused:    factory.Counter("streamledger.stream.paused"),
		StreamsRestarted: factory.Counter("streamledger.stream.restarted"),
		StreamsCanceled:  factory.Counter("streamledger.stream.canceled"),
		StreamsVoided:    factory.Counter("streamledger.stream.voided"),
		RateUpdates:      factory.Counter("streamledger.stream.rate_updates"),

		// Withdrawal metrics
		Withdrawals:      factory.Counter("streamledger.withdrawal.count"),
		WithdrawalAmount: factory.Histogram("streamledger.withdrawal.amount"),
		FeesCollected:    factory.Histogram("streamledger.withdrawal.fee"),

		// Delegation metrics
		DelegationsGranted: factory.Counter("streamledger.delegation.granted"),
		DelegationsRevoked: factory.Counter("streamledger.delegation.revoked"),

		// Protocol metrics
		FeeUpdates:     factory.Counter("streamledger.protocol.fee_updates"),
		FeeWithdrawals: factory.Counter("streamledger.protocol.fee_withdrawals"),

		// Event log metrics
		EventBatchSize:    factory.Histogram("streamledger.events.batch.size"),
		EventFlushLatency: factory.Histogram("streamledger.events.flush.latency_ms"),

		// Error metrics
		StoreErrors:  factory.Counter("streamledger.store.errors"),
		PluginErrors: factory.Counter("streamledger.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, _ *stream.Stream) error {
	m.StreamsCreated.Inc()
	return nil
}

// OnStreamPaused implements plugin.OnStreamPaused.
func (m *MetricsExtension) OnStreamPaused(_ context.Context, _ *stream.Stream) error {
	m.StreamsPaused.Inc()
	return nil
}

// OnStreamRestarted implements plugin.OnStreamRestarted.
func (m *MetricsExtension) OnStreamRestarted(_ context.Context, _ *stream.Stream) error {
	m.StreamsRestarted.Inc()
	return nil
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (m *MetricsExtension) OnStreamCanceled(_ context.Context, _ *stream.Stream, _ *uint256.Int) error {
	m.StreamsCanceled.Inc()
	return nil
}

// OnStreamVoided implements plugin.OnStreamVoided.
func (m *MetricsExtension) OnStreamVoided(_ context.Context, _ *stream.Stream, _ *uint256.Int) error {
	m.StreamsVoided.Inc()
	return nil
}

// OnRateUpdated implements plugin.OnRateUpdated.
func (m *MetricsExtension) OnRateUpdated(_ context.Context, _ *stream.Stream, _ *uint256.Int) error {
	m.RateUpdates.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Withdrawal hooks
// ──────────────────────────────────────────────────

// OnWithdrawal implements plugin.OnWithdrawal. Histogram values are the
// nearest float64 of the raw token amounts.
func (m *MetricsExtension) OnWithdrawal(_ context.Context, _ *stream.Stream, net, fee *uint256.Int) error {
	m.Withdrawals.Inc()
	if net != nil {
		m.WithdrawalAmount.Observe(net.Float64())
	}
	if fee != nil && !fee.IsZero() {
		m.FeesCollected.Observe(fee.Float64())
	}
	return nil
}

// ──────────────────────────────────────────────────
// Delegation hooks
// ──────────────────────────────────────────────────

// OnDelegationGranted implements plugin.OnDelegationGranted.
func (m *MetricsExtension) OnDelegationGranted(_ context.Context, _ uint64, _ common.Address) error {
	m.DelegationsGranted.Inc()
	return nil
}

// OnDelegationRevoked implements plugin.OnDelegationRevoked.
func (m *MetricsExtension) OnDelegationRevoked(_ context.Context, _ uint64, _ common.Address) error {
	m.DelegationsRevoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Protocol hooks
// ──────────────────────────────────────────────────

// OnProtocolFeeUpdated implements plugin.OnProtocolFeeUpdated.
func (m *MetricsExtension) OnProtocolFeeUpdated(_ context.Context, _, _ uint16) error {
	m.FeeUpdates.Inc()
	return nil
}

// OnProtocolFeeWithdrawn implements plugin.OnProtocolFeeWithdrawn.
func (m *MetricsExtension) OnProtocolFeeWithdrawn(_ context.Context, _, _ common.Address, _ *uint256.Int) error {
	m.FeeWithdrawals.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Event log hooks
// ──────────────────────────────────────────────────

// OnEventsFlushed implements plugin.OnEventsFlushed.
func (m *MetricsExtension) OnEventsFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.EventBatchSize.Observe(float64(count))
	m.EventFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
