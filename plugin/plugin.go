// Package plugin provides an extensible plugin system for the stream
// ledger. Plugins can hook into lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/stream"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called when a new stream is created.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, s *stream.Stream) error
}

// OnStreamPaused is called when a stream is paused.
type OnStreamPaused interface {
	Plugin
	OnStreamPaused(ctx context.Context, s *stream.Stream) error
}

// OnStreamRestarted is called when a paused stream resumes.
type OnStreamRestarted interface {
	Plugin
	OnStreamRestarted(ctx context.Context, s *stream.Stream) error
}

// OnStreamCanceled is called when a stream is canceled. refunded is the
// unstreamed remainder returned to the sender.
type OnStreamCanceled interface {
	Plugin
	OnStreamCanceled(ctx context.Context, s *stream.Stream, refunded *uint256.Int) error
}

// OnStreamVoided is called when a stream is voided. forgiven is the
// unwithdrawn debt written off.
type OnStreamVoided interface {
	Plugin
	OnStreamVoided(ctx context.Context, s *stream.Stream, forgiven *uint256.Int) error
}

// OnRateUpdated is called when a stream's release rate changes.
type OnRateUpdated interface {
	Plugin
	OnRateUpdated(ctx context.Context, s *stream.Stream, rate *uint256.Int) error
}

// ──────────────────────────────────────────────────
// Withdrawal hooks
// ──────────────────────────────────────────────────

// OnWithdrawal is called after funds leave a stream.
type OnWithdrawal interface {
	Plugin
	OnWithdrawal(ctx context.Context, s *stream.Stream, net, fee *uint256.Int) error
}

// ──────────────────────────────────────────────────
// Delegation hooks
// ──────────────────────────────────────────────────

// OnDelegationGranted is called when a withdrawal delegate is set.
type OnDelegationGranted interface {
	Plugin
	OnDelegationGranted(ctx context.Context, streamID uint64, delegate common.Address) error
}

// OnDelegationRevoked is called when a withdrawal delegate is cleared.
type OnDelegationRevoked interface {
	Plugin
	OnDelegationRevoked(ctx context.Context, streamID uint64, delegate common.Address) error
}

// ──────────────────────────────────────────────────
// Protocol administration hooks
// ──────────────────────────────────────────────────

// OnProtocolFeeUpdated is called when the fee percentage changes.
type OnProtocolFeeUpdated interface {
	Plugin
	OnProtocolFeeUpdated(ctx context.Context, previousBPS, bps uint16) error
}

// OnFeeCollectorUpdated is called when the collector address changes.
type OnFeeCollectorUpdated interface {
	Plugin
	OnFeeCollectorUpdated(ctx context.Context, previous, collector common.Address) error
}

// OnProtocolOwnerUpdated is called when the protocol-owner role moves.
type OnProtocolOwnerUpdated interface {
	Plugin
	OnProtocolOwnerUpdated(ctx context.Context, previous, owner common.Address) error
}

// OnProtocolFeeWithdrawn is called when accrued fees are paid out.
type OnProtocolFeeWithdrawn interface {
	Plugin
	OnProtocolFeeWithdrawn(ctx context.Context, token, to common.Address, amount *uint256.Int) error
}

// ──────────────────────────────────────────────────
// Event log hooks
// ──────────────────────────────────────────────────

// OnEventsFlushed is called when buffered domain events are flushed to the
// store.
type OnEventsFlushed interface {
	Plugin
	OnEventsFlushed(ctx context.Context, count int, elapsed time.Duration) error
}
