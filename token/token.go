// Package token defines the fungible-token collaborator the engine settles
// against. The ledger never holds balances itself; it directs transfers
// through this service and treats a false transfer result as a fatal
// failure of the enclosing operation.
package token

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Service is the balance/allowance/transfer surface of a fungible token
// standard, parameterized by token contract address.
type Service interface {
	BalanceOf(ctx context.Context, token, addr common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
	TransferFrom(ctx context.Context, token, from, to common.Address, amount *uint256.Int) (bool, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}
