// Package certificate defines the stream-ownership certificate registry the
// engine consults for authorization. One non-fungible certificate exists
// per stream id; whoever holds it (or its approved agent) may withdraw.
package certificate

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is the mint/ownership/approval surface of the certificate
// system. The registry, not the stream ledger, is the source of truth for
// who holds a stream.
type Registry interface {
	Mint(ctx context.Context, to common.Address, streamID uint64) error
	OwnerOf(ctx context.Context, streamID uint64) (common.Address, error)
	Approved(ctx context.Context, streamID uint64) (common.Address, error)
}
