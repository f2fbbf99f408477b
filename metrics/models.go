// Package metrics defines the protocol-wide counter set and the per-token
// distribution totals maintained by the engine.
package metrics

import (
	"context"

	"github.com/holiman/uint256"
)

// Protocol is the singleton protocol-wide counter set. ActiveStreams is
// incremented on creation and decremented when a stream is canceled or
// voided, so it reflects the live population at all times.
type Protocol struct {
	StreamsCreated uint64 `json:"streams_created"`
	ActiveStreams  uint64 `json:"active_streams"`
	Delegations    uint64 `json:"delegations"`
	Withdrawals    uint64 `json:"withdrawals"`
}

// Clone returns an independent copy of p.
func (p *Protocol) Clone() *Protocol {
	if p == nil {
		return &Protocol{}
	}
	c := *p
	return &c
}

// Store is the persistence contract for protocol metrics. Distribution
// totals are keyed by the token's lowercase hex address and accumulate the
// gross amount of every withdrawal in that token.
type Store interface {
	GetProtocol(ctx context.Context) (*Protocol, error)
	PutProtocol(ctx context.Context, p *Protocol) error

	AddDistribution(ctx context.Context, token string, amount *uint256.Int) error
	Distribution(ctx context.Context, token string) (*uint256.Int, error)
}
