// Package stream defines the stream record, its lifecycle state machine,
// and the time-proportional release accounting.
package stream

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/types"
)

// Status is the lifecycle state of a stream.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
	StatusVoided   Status = "voided"
)

// Terminal reports whether no further status transition is allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusVoided
}

// transitions is the exhaustive table of legal status changes. Anything
// not listed is rejected, so Canceled and Voided are terminal.
var transitions = map[Status][]Status{
	StatusActive: {StatusPaused, StatusCanceled, StatusVoided},
	StatusPaused: {StatusActive, StatusVoided},
}

// CanTransition reports whether a stream may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Stream is a commitment to release a fixed token amount from a sender to
// a recipient continuously between a start and end time. The recipient is
// not stored here: the certificate registry is the source of truth for who
// holds a stream, while Sender records only who funded it.
type Stream struct {
	types.Entity
	ID              uint64         `json:"id"`
	Sender          common.Address `json:"sender"`
	Token           common.Address `json:"token"`
	TokenDecimals   uint8          `json:"token_decimals"`
	TotalAmount     *uint256.Int   `json:"total_amount"`
	StartTime       uint64         `json:"start_time"`
	EndTime         uint64         `json:"end_time"`
	WithdrawnAmount *uint256.Int   `json:"withdrawn_amount"`
	Cancelable      bool           `json:"cancelable"`
	Status          Status         `json:"status"`
	RatePerSecond   *uint256.Int   `json:"rate_per_second"` // fixed-point, types.RateScale
	LastUpdateTime  uint64         `json:"last_update_time"`
}

// Exists reports whether s is a real stored stream. A zero sender is the
// sentinel for "does not exist".
func (s *Stream) Exists() bool {
	return s != nil && s.Sender != (common.Address{})
}

// Clone returns a deep copy so callers cannot mutate ledger state through
// a read.
func (s *Stream) Clone() *Stream {
	if s == nil {
		return nil
	}
	c := *s
	c.TotalAmount = types.CloneAmount(s.TotalAmount)
	c.WithdrawnAmount = types.CloneAmount(s.WithdrawnAmount)
	c.RatePerSecond = types.CloneAmount(s.RatePerSecond)
	return &c
}

// Metrics is the per-stream counter set maintained by the engine.
type Metrics struct {
	StreamID        uint64       `json:"stream_id"`
	WithdrawalCount uint64       `json:"withdrawal_count"`
	TotalWithdrawn  *uint256.Int `json:"total_withdrawn"`
	DelegationCount uint64       `json:"delegation_count"`
}

// NewMetrics returns a zeroed metrics record for a stream.
func NewMetrics(streamID uint64) *Metrics {
	return &Metrics{StreamID: streamID, TotalWithdrawn: new(uint256.Int)}
}

// Clone returns an independent copy of m.
func (m *Metrics) Clone() *Metrics {
	if m == nil {
		return nil
	}
	c := *m
	c.TotalWithdrawn = types.CloneAmount(m.TotalWithdrawn)
	return &c
}
