package access

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// compile-time interface check
var _ Controller = (*Memory)(nil)

// Memory is an in-process role registry for tests and single-node
// deployments.
type Memory struct {
	mu    sync.RWMutex
	roles map[Role]map[common.Address]bool
}

// NewMemory creates an empty in-memory role registry.
func NewMemory() *Memory {
	return &Memory{roles: make(map[Role]map[common.Address]bool)}
}

func (m *Memory) GrantRole(_ context.Context, role Role, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles[role] == nil {
		m.roles[role] = make(map[common.Address]bool)
	}
	m.roles[role][addr] = true
	return nil
}

func (m *Memory) RevokeRole(_ context.Context, role Role, addr common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles[role], addr)
	return nil
}

func (m *Memory) HasRole(_ context.Context, role Role, addr common.Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles[role][addr], nil
}
