// Package memory provides an in-memory store implementation, suitable for
// tests and single-process embedding. All reads return deep copies so
// callers cannot mutate stored state in place.
package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

type Store struct {
	mu     sync.RWMutex
	closed bool

	// Stream storage. IDs are assigned sequentially from zero.
	streams map[uint64]*stream.Stream
	nextID  uint64

	// Per-stream metrics
	streamMetrics map[uint64]*stream.Metrics

	// Delegation state and append-only grant history
	delegates map[uint64]common.Address
	grants    map[uint64][]*delegation.Grant

	// Protocol metrics and per-token distribution totals
	protocol      *metrics.Protocol
	distributions map[string]*uint256.Int

	// Fee configuration and per-token accrued liability
	feeConfig *fee.Config
	accrued   map[string]*uint256.Int

	// Event log, append order preserved
	events []*event.Event
}

func New() *Store {
	return &Store{
		streams:       make(map[uint64]*stream.Stream),
		streamMetrics: make(map[uint64]*stream.Metrics),
		delegates:     make(map[uint64]common.Address),
		grants:        make(map[uint64][]*delegation.Grant),
		distributions: make(map[string]*uint256.Int),
		accrued:       make(map[string]*uint256.Int),
	}
}

// Stream Store implementation
func (s *Store) CreateStream(_ context.Context, st *stream.Stream) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, streamledger.ErrStoreClosed
	}
	id := s.nextID
	s.nextID++

	c := st.Clone()
	c.ID = id
	s.streams[id] = c
	return id, nil
}

func (s *Store) GetStream(_ context.Context, streamID uint64) (*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.streams[streamID]; ok {
		return st.Clone(), nil
	}
	return nil, streamledger.ErrUnexistingStream
}

func (s *Store) UpdateStream(_ context.Context, st *stream.Stream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.streams[st.ID]; !exists {
		return streamledger.ErrUnexistingStream
	}
	s.streams[st.ID] = st.Clone()
	return nil
}

func (s *Store) ListStreams(_ context.Context, opts stream.ListOpts) ([]*stream.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*stream.Stream, 0)
	for id := uint64(0); id < s.nextID; id++ {
		st, ok := s.streams[id]
		if !ok {
			continue
		}
		if opts.Sender != "" && opts.Sender != st.Sender.Hex() {
			continue
		}
		if opts.Status != "" && opts.Status != st.Status {
			continue
		}
		result = append(result, st.Clone())
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) GetStreamMetrics(_ context.Context, streamID uint64) (*stream.Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if m, ok := s.streamMetrics[streamID]; ok {
		return m.Clone(), nil
	}
	return nil, nil
}

func (s *Store) PutStreamMetrics(_ context.Context, m *stream.Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streamMetrics[m.StreamID] = m.Clone()
	return nil
}

// Delegation Store implementation
func (s *Store) SetDelegate(_ context.Context, streamID uint64, delegate common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if delegate == (common.Address{}) {
		delete(s.delegates, streamID)
		return nil
	}
	s.delegates[streamID] = delegate
	return nil
}

func (s *Store) GetDelegate(_ context.Context, streamID uint64) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.delegates[streamID], nil
}

func (s *Store) AppendGrant(_ context.Context, g *delegation.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *g
	s.grants[g.StreamID] = append(s.grants[g.StreamID], &c)
	return nil
}

func (s *Store) DelegationHistory(_ context.Context, streamID uint64) ([]*delegation.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.grants[streamID]
	result := make([]*delegation.Grant, 0, len(history))
	for _, g := range history {
		c := *g
		result = append(result, &c)
	}
	return result, nil
}

// Metrics Store implementation
func (s *Store) GetProtocolMetrics(_ context.Context) (*metrics.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.protocol.Clone(), nil
}

func (s *Store) PutProtocolMetrics(_ context.Context, p *metrics.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.protocol = p.Clone()
	return nil
}

func (s *Store) AddDistribution(_ context.Context, token string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, ok := s.distributions[token]
	if !ok {
		total = new(uint256.Int)
		s.distributions[token] = total
	}
	total.Add(total, amount)
	return nil
}

func (s *Store) Distribution(_ context.Context, token string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.CloneAmount(s.distributions[token]), nil
}

// Fee Store implementation
func (s *Store) GetFeeConfig(_ context.Context) (*fee.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.feeConfig == nil {
		return nil, nil
	}
	c := *s.feeConfig
	return &c, nil
}

func (s *Store) PutFeeConfig(_ context.Context, cfg *fee.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cfg
	s.feeConfig = &c
	return nil
}

func (s *Store) AccrueFees(_ context.Context, token string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, ok := s.accrued[token]
	if !ok {
		total = new(uint256.Int)
		s.accrued[token] = total
	}
	total.Add(total, amount)
	return nil
}

func (s *Store) AccruedFees(_ context.Context, token string) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.CloneAmount(s.accrued[token]), nil
}

func (s *Store) DeductFees(_ context.Context, token string, amount *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, ok := s.accrued[token]
	if !ok || total.Lt(amount) {
		return streamledger.ErrExceedsAccruedFees
	}
	total.Sub(total, amount)
	return nil
}

// Event Store implementation
func (s *Store) AppendEvents(_ context.Context, events []*event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return streamledger.ErrStoreClosed
	}
	for _, ev := range events {
		c := *ev
		s.events = append(s.events, &c)
	}
	return nil
}

func (s *Store) ListEvents(_ context.Context, streamID uint64, opts event.QueryOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0)
	for _, ev := range s.events {
		if ev.StreamID == nil || *ev.StreamID != streamID {
			continue
		}
		if opts.Kind != "" && opts.Kind != ev.Kind {
			continue
		}
		c := *ev
		result = append(result, &c)
	}

	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Lifecycle
func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return streamledger.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
