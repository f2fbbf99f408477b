package stream

import (
	"context"
)

// Store is the persistence contract for stream records. Create assigns the
// next monotonically increasing stream id, starting at 0.
type Store interface {
	Create(ctx context.Context, s *Stream) (uint64, error)
	Get(ctx context.Context, streamID uint64) (*Stream, error)
	Update(ctx context.Context, s *Stream) error
	List(ctx context.Context, opts ListOpts) ([]*Stream, error)

	GetMetrics(ctx context.Context, streamID uint64) (*Metrics, error)
	PutMetrics(ctx context.Context, m *Metrics) error
}

// ListOpts filters and pages stream listings.
type ListOpts struct {
	Sender string // EIP-55 hex address as returned by Address.Hex; empty matches all
	Status Status // empty matches all
	Limit  int
	Offset int
}
