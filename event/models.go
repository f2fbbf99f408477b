// Package event defines the append-only domain event log. Every
// state-changing ledger operation emits exactly one event; the engine
// buffers them and flushes batches to the store in the background.
package event

import (
	"context"
	"time"

	"github.com/xraph/streamledger/id"
)

// Kind names a domain event type.
type Kind string

const (
	KindStreamCreated        Kind = "stream_created"
	KindWithdrawal           Kind = "withdrawal"
	KindStreamPaused         Kind = "stream_paused"
	KindStreamRestarted      Kind = "stream_restarted"
	KindStreamCanceled       Kind = "stream_canceled"
	KindStreamVoided         Kind = "stream_voided"
	KindRateUpdated          Kind = "rate_updated"
	KindDelegationGranted    Kind = "delegation_granted"
	KindDelegationRevoked    Kind = "delegation_revoked"
	KindProtocolFeeUpdated   Kind = "protocol_fee_updated"
	KindFeeCollectorUpdated  Kind = "fee_collector_updated"
	KindProtocolOwnerUpdated Kind = "protocol_owner_updated"
	KindProtocolFeeWithdrawn Kind = "protocol_fee_withdrawn"
)

// Event is one entry in the domain event log. StreamID is nil for
// protocol-level events (fee and owner updates). Payload values are
// strings: addresses as lowercase hex, amounts as base-10 integers.
type Event struct {
	ID       id.EventID        `json:"id"`
	StreamID *uint64           `json:"stream_id,omitempty"`
	Kind     Kind              `json:"kind"`
	Payload  map[string]string `json:"payload,omitempty"`
	At       time.Time         `json:"at"`
}

// QueryOpts filters and pages event listings.
type QueryOpts struct {
	Kind   Kind // empty matches all
	Limit  int
	Offset int
}

// Store is the persistence contract for the event log.
type Store interface {
	AppendEvents(ctx context.Context, events []*Event) error
	ListEvents(ctx context.Context, streamID uint64, opts QueryOpts) ([]*Event, error)
}
