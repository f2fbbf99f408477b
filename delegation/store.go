package delegation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store is the persistence contract for delegation state. Exactly one
// delegate may be current per stream; the zero address means none.
type Store interface {
	SetDelegate(ctx context.Context, streamID uint64, delegate common.Address) error
	GetDelegate(ctx context.Context, streamID uint64) (common.Address, error)

	AppendGrant(ctx context.Context, g *Grant) error
	History(ctx context.Context, streamID uint64) ([]*Grant, error)
}
