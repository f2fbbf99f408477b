package store

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
)

// Store is the unified storage interface for all streamledger state.
// Instead of embedding the sub-interfaces, we explicitly declare all
// methods to avoid naming conflicts.
type Store interface {
	// Stream methods. CreateStream assigns the next monotonically
	// increasing id, starting at 0.
	CreateStream(ctx context.Context, s *stream.Stream) (uint64, error)
	GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error)
	UpdateStream(ctx context.Context, s *stream.Stream) error
	ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error)
	GetStreamMetrics(ctx context.Context, streamID uint64) (*stream.Metrics, error)
	PutStreamMetrics(ctx context.Context, m *stream.Metrics) error

	// Delegation methods. The zero delegate address means none.
	SetDelegate(ctx context.Context, streamID uint64, delegate common.Address) error
	GetDelegate(ctx context.Context, streamID uint64) (common.Address, error)
	AppendGrant(ctx context.Context, g *delegation.Grant) error
	DelegationHistory(ctx context.Context, streamID uint64) ([]*delegation.Grant, error)

	// Protocol metrics methods. Distribution totals are keyed by
	// lowercase hex token address.
	GetProtocolMetrics(ctx context.Context) (*metrics.Protocol, error)
	PutProtocolMetrics(ctx context.Context, p *metrics.Protocol) error
	AddDistribution(ctx context.Context, token string, amount *uint256.Int) error
	Distribution(ctx context.Context, token string) (*uint256.Int, error)

	// Fee methods. Accrued balances are keyed by lowercase hex token
	// address and decremented only by protocol-fee withdrawals.
	GetFeeConfig(ctx context.Context) (*fee.Config, error)
	PutFeeConfig(ctx context.Context, cfg *fee.Config) error
	AccrueFees(ctx context.Context, token string, amount *uint256.Int) error
	AccruedFees(ctx context.Context, token string) (*uint256.Int, error)
	DeductFees(ctx context.Context, token string, amount *uint256.Int) error

	// Event methods
	AppendEvents(ctx context.Context, events []*event.Event) error
	ListEvents(ctx context.Context, streamID uint64, opts event.QueryOpts) ([]*event.Event, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
