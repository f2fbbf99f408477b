package streamledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
)

// ProtocolMetrics returns the protocol-wide counter set.
func (e *Engine) ProtocolMetrics(ctx context.Context) (*metrics.Protocol, error) {
	p, err := e.store.GetProtocolMetrics(ctx)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// ActiveStreamsCount returns the number of streams that are neither
// canceled nor voided.
func (e *Engine) ActiveStreamsCount(ctx context.Context) (uint64, error) {
	p, err := e.store.GetProtocolMetrics(ctx)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, nil
	}
	return p.ActiveStreams, nil
}

// StreamMetrics returns the per-stream counter set.
func (e *Engine) StreamMetrics(ctx context.Context, streamID uint64) (*stream.Metrics, error) {
	if _, err := e.loadStream(ctx, streamID); err != nil {
		return nil, err
	}
	m, err := e.store.GetStreamMetrics(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return stream.NewMetrics(streamID), nil
	}
	return m.Clone(), nil
}

// TokenDistribution returns the cumulative gross amount withdrawn across
// all streams in a token.
func (e *Engine) TokenDistribution(ctx context.Context, token common.Address) (*uint256.Int, error) {
	d, err := e.store.Distribution(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}
	if d == nil {
		return new(uint256.Int), nil
	}
	return d, nil
}

// ListStreams pages through stored streams, optionally filtered by sender
// or status.
func (e *Engine) ListStreams(ctx context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	return e.store.ListStreams(ctx, opts)
}

// bumpProtocolMetrics applies fn to the protocol counter set and writes it
// back.
func (e *Engine) bumpProtocolMetrics(ctx context.Context, fn func(*metrics.Protocol)) error {
	p, err := e.store.GetProtocolMetrics(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		p = &metrics.Protocol{}
	}
	fn(p)
	return e.store.PutProtocolMetrics(ctx, p)
}

// tokenKey is the canonical store key for a token address.
func tokenKey(token common.Address) string {
	return strings.ToLower(token.Hex())
}

func addrHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func u64String(v uint64) string {
	return strconv.FormatUint(v, 10)
}
