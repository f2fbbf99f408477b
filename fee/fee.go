// Package fee computes the protocol's basis-points cut of withdrawals and
// models the protocol fee configuration and per-token accrued liability.
package fee

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/types"
)

// BPSDenominator is the basis-points divisor: 10000 bps = 100%.
const BPSDenominator = 10_000

// MaxBPS caps the protocol fee at 100%.
const MaxBPS = BPSDenominator

// Config is the protocol-wide fee state. BPS is mutable only by the
// protocol owner; Collector receives every collected fee.
type Config struct {
	types.Entity
	BPS       uint16         `json:"bps"`
	Collector common.Address `json:"collector"`
}

// For computes the protocol fee on amount, integer-truncated:
// amount * bps / 10000.
func For(amount *uint256.Int, bps uint16) *uint256.Int {
	if amount == nil || amount.IsZero() || bps == 0 {
		return new(uint256.Int)
	}
	f, overflow := new(uint256.Int).MulOverflow(amount, uint256.NewInt(uint64(bps)))
	if overflow {
		// amount * bps overflows only for amounts above 2^256/10^4;
		// divide first, accepting the coarser truncation.
		f.Div(amount, uint256.NewInt(BPSDenominator))
		return f.Mul(f, uint256.NewInt(uint64(bps)))
	}
	return f.Div(f, uint256.NewInt(BPSDenominator))
}

// Split divides amount into the net payout and the protocol fee.
func Split(amount *uint256.Int, bps uint16) (net, protocolFee *uint256.Int) {
	protocolFee = For(amount, bps)
	net = new(uint256.Int).Sub(amount, protocolFee)
	return net, protocolFee
}

// Store is the persistence contract for the fee configuration and the
// per-token accrued fee liability. Accrued balances are keyed by the
// token's lowercase hex address and decremented only by explicit
// protocol-fee withdrawals.
type Store interface {
	GetConfig(ctx context.Context) (*Config, error)
	PutConfig(ctx context.Context, cfg *Config) error

	Accrue(ctx context.Context, token string, amount *uint256.Int) error
	Accrued(ctx context.Context, token string) (*uint256.Int, error)
	Deduct(ctx context.Context, token string, amount *uint256.Int) error
}
