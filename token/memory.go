package token

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// compile-time interface check
var _ Service = (*Memory)(nil)

// Memory is an in-process token bank implementing Service for tests and
// single-node deployments. Transfers enforce balances; allowance checks
// are the caller's responsibility, matching the split the engine relies
// on (it consults Allowance before directing TransferFrom).
type Memory struct {
	mu         sync.RWMutex
	balances   map[common.Address]map[common.Address]*uint256.Int                // token -> holder -> balance
	allowances map[common.Address]map[common.Address]map[common.Address]*uint256.Int // token -> owner -> spender
	decimals   map[common.Address]uint8
}

// NewMemory creates an empty in-memory token bank.
func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*uint256.Int),
		decimals:   make(map[common.Address]uint8),
	}
}

// Register declares a token and its decimal precision.
func (m *Memory) Register(tok common.Address, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decimals[tok] = decimals
}

// Mint credits amount to addr. Test and bootstrap helper.
func (m *Memory) Mint(tok, addr common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(tok, addr, amount)
}

// Approve sets spender's allowance over owner's balance.
func (m *Memory) Approve(tok, owner, spender common.Address, amount *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[tok] == nil {
		m.allowances[tok] = make(map[common.Address]map[common.Address]*uint256.Int)
	}
	if m.allowances[tok][owner] == nil {
		m.allowances[tok][owner] = make(map[common.Address]*uint256.Int)
	}
	m.allowances[tok][owner][spender] = new(uint256.Int).Set(amount)
}

func (m *Memory) BalanceOf(_ context.Context, tok, addr common.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b := m.balances[tok][addr]; b != nil {
		return new(uint256.Int).Set(b), nil
	}
	return new(uint256.Int), nil
}

func (m *Memory) Allowance(_ context.Context, tok, owner, spender common.Address) (*uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a := m.allowances[tok][owner][spender]; a != nil {
		return new(uint256.Int).Set(a), nil
	}
	return new(uint256.Int), nil
}

func (m *Memory) Decimals(_ context.Context, tok common.Address) (uint8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decimals[tok], nil
}

// TransferFrom moves amount from one holder to another. It returns false
// without error if the balance or allowance is insufficient, mirroring the
// boolean success convention of token standards.
func (m *Memory) TransferFrom(_ context.Context, tok, from, to common.Address, amount *uint256.Int) (bool, error) {
	if amount == nil || amount.IsZero() {
		return true, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[tok][from]
	if bal == nil || bal.Lt(amount) {
		return false, nil
	}

	bal.Sub(bal, amount)
	m.credit(tok, to, amount)
	return true, nil
}

// credit assumes the write lock is held.
func (m *Memory) credit(tok, addr common.Address, amount *uint256.Int) {
	if m.balances[tok] == nil {
		m.balances[tok] = make(map[common.Address]*uint256.Int)
	}
	if m.balances[tok][addr] == nil {
		m.balances[tok][addr] = new(uint256.Int)
	}
	m.balances[tok][addr].Add(m.balances[tok][addr], amount)
}
