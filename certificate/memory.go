package certificate

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// compile-time interface check
var _ Registry = (*Memory)(nil)

// Memory is an in-process certificate registry for tests and single-node
// deployments.
type Memory struct {
	mu       sync.RWMutex
	owners   map[uint64]common.Address
	approved map[uint64]common.Address
}

// NewMemory creates an empty in-memory certificate registry.
func NewMemory() *Memory {
	return &Memory{
		owners:   make(map[uint64]common.Address),
		approved: make(map[uint64]common.Address),
	}
}

func (m *Memory) Mint(_ context.Context, to common.Address, streamID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.owners[streamID]; exists {
		return fmt.Errorf("certificate: stream %d already minted", streamID)
	}
	m.owners[streamID] = to
	return nil
}

func (m *Memory) OwnerOf(_ context.Context, streamID uint64) (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[streamID], nil
}

func (m *Memory) Approved(_ context.Context, streamID uint64) (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.approved[streamID], nil
}

// Transfer moves the certificate to a new holder and clears any approval,
// mirroring non-fungible transfer semantics.
func (m *Memory) Transfer(_ context.Context, streamID uint64, to common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.owners[streamID]; !exists {
		return fmt.Errorf("certificate: stream %d not minted", streamID)
	}
	m.owners[streamID] = to
	delete(m.approved, streamID)
	return nil
}

// Approve designates an agent allowed to act for the certificate holder.
func (m *Memory) Approve(_ context.Context, streamID uint64, agent common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.owners[streamID]; !exists {
		return fmt.Errorf("certificate: stream %d not minted", streamID)
	}
	m.approved[streamID] = agent
	return nil
}
