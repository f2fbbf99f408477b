package mongo

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Amounts are persisted as base-10 decimal strings so arbitrary 256-bit
// values survive the round trip exactly. Stream ids are stored as int64
// because BSON has no unsigned integer type.

// ==================== Stream models ====================

type streamModel struct {
	grove.BaseModel `grove:"table:streamledger_streams"`

	ID              int64     `grove:"id,pk"            bson:"_id"`
	Sender          string    `grove:"sender"           bson:"sender"`
	Token           string    `grove:"token"            bson:"token"`
	TokenDecimals   uint8     `grove:"token_decimals"   bson:"token_decimals"`
	TotalAmount     string    `grove:"total_amount"     bson:"total_amount"`
	WithdrawnAmount string    `grove:"withdrawn_amount" bson:"withdrawn_amount"`
	RatePerSecond   string    `grove:"rate_per_second"  bson:"rate_per_second"`
	StartTime       uint64    `grove:"start_time"       bson:"start_time"`
	EndTime         uint64    `grove:"end_time"         bson:"end_time"`
	LastUpdateTime  uint64    `grove:"last_update_time" bson:"last_update_time"`
	Cancelable      bool      `grove:"cancelable"       bson:"cancelable"`
	Status          string    `grove:"status"           bson:"status"`
	CreatedAt       time.Time `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"       bson:"updated_at"`
}

func toStreamModel(st *stream.Stream) *streamModel {
	return &streamModel{
		ID:              int64(st.ID),
		Sender:          st.Sender.Hex(),
		Token:           st.Token.Hex(),
		TokenDecimals:   st.TokenDecimals,
		TotalAmount:     types.AmountString(st.TotalAmount),
		WithdrawnAmount: types.AmountString(st.WithdrawnAmount),
		RatePerSecond:   types.AmountString(st.RatePerSecond),
		StartTime:       st.StartTime,
		EndTime:         st.EndTime,
		LastUpdateTime:  st.LastUpdateTime,
		Cancelable:      st.Cancelable,
		Status:          string(st.Status),
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
	}
}

func fromStreamModel(m *streamModel) (*stream.Stream, error) {
	total, err := types.ParseAmount(m.TotalAmount)
	if err != nil {
		return nil, err
	}
	withdrawn, err := types.ParseAmount(m.WithdrawnAmount)
	if err != nil {
		return nil, err
	}
	rate, err := types.ParseAmount(m.RatePerSecond)
	if err != nil {
		return nil, err
	}

	return &stream.Stream{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              uint64(m.ID),
		Sender:          common.HexToAddress(m.Sender),
		Token:           common.HexToAddress(m.Token),
		TokenDecimals:   m.TokenDecimals,
		TotalAmount:     total,
		WithdrawnAmount: withdrawn,
		RatePerSecond:   rate,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		LastUpdateTime:  m.LastUpdateTime,
		Cancelable:      m.Cancelable,
		Status:          stream.Status(m.Status),
	}, nil
}

// ==================== Stream metrics models ====================

type streamMetricsModel struct {
	grove.BaseModel `grove:"table:streamledger_stream_metrics"`

	ID              int64  `grove:"stream_id,pk"     bson:"_id"`
	WithdrawalCount uint64 `grove:"withdrawal_count" bson:"withdrawal_count"`
	TotalWithdrawn  string `grove:"total_withdrawn"  bson:"total_withdrawn"`
	DelegationCount uint64 `grove:"delegation_count" bson:"delegation_count"`
}

func toStreamMetricsModel(m *stream.Metrics) *streamMetricsModel {
	return &streamMetricsModel{
		ID:              int64(m.StreamID),
		WithdrawalCount: m.WithdrawalCount,
		TotalWithdrawn:  types.AmountString(m.TotalWithdrawn),
		DelegationCount: m.DelegationCount,
	}
}

func fromStreamMetricsModel(m *streamMetricsModel) (*stream.Metrics, error) {
	total, err := types.ParseAmount(m.TotalWithdrawn)
	if err != nil {
		return nil, err
	}
	return &stream.Metrics{
		StreamID:        uint64(m.ID),
		WithdrawalCount: m.WithdrawalCount,
		TotalWithdrawn:  total,
		DelegationCount: m.DelegationCount,
	}, nil
}

// ==================== Delegation models ====================

type delegateModel struct {
	grove.BaseModel `grove:"table:streamledger_delegates"`

	ID       int64  `grove:"stream_id,pk" bson:"_id"`
	Delegate string `grove:"delegate"     bson:"delegate"`
}

type grantModel struct {
	grove.BaseModel `grove:"table:streamledger_delegation_grants"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	StreamID  int64     `grove:"stream_id"  bson:"stream_id"`
	Delegate  string    `grove:"delegate"   bson:"delegate"`
	GrantedBy string    `grove:"granted_by" bson:"granted_by"`
	GrantedAt time.Time `grove:"granted_at" bson:"granted_at"`
}

func toGrantModel(g *delegation.Grant) *grantModel {
	return &grantModel{
		ID:        g.ID.String(),
		StreamID:  int64(g.StreamID),
		Delegate:  g.Delegate.Hex(),
		GrantedBy: g.GrantedBy.Hex(),
		GrantedAt: g.GrantedAt,
	}
}

func fromGrantModel(m *grantModel) (*delegation.Grant, error) {
	grantID, err := id.ParseGrantID(m.ID)
	if err != nil {
		return nil, err
	}
	return &delegation.Grant{
		ID:        grantID,
		StreamID:  uint64(m.StreamID),
		Delegate:  common.HexToAddress(m.Delegate),
		GrantedBy: common.HexToAddress(m.GrantedBy),
		GrantedAt: m.GrantedAt,
	}, nil
}

// ==================== Metrics models ====================

type protocolMetricsModel struct {
	grove.BaseModel `grove:"table:streamledger_protocol_metrics"`

	ID             string `grove:"id,pk"           bson:"_id"`
	StreamsCreated int64  `grove:"streams_created" bson:"streams_created"`
	ActiveStreams  int64  `grove:"active_streams"  bson:"active_streams"`
	Delegations    int64  `grove:"delegations"     bson:"delegations"`
	Withdrawals    int64  `grove:"withdrawals"     bson:"withdrawals"`
}

// tokenTotalModel is shared by the distributions and accrued fees
// collections; it is read and written through the raw driver only.
type tokenTotalModel struct {
	Token string `bson:"_id"`
	Total string `bson:"total"`
}

// ==================== Fee models ====================

type feeConfigModel struct {
	grove.BaseModel `grove:"table:streamledger_fee_config"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	BPS       uint16    `grove:"bps"        bson:"bps"`
	Collector string    `grove:"collector"  bson:"collector"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toFeeConfigModel(cfg *fee.Config) *feeConfigModel {
	return &feeConfigModel{
		ID:        singletonDoc,
		BPS:       cfg.BPS,
		Collector: cfg.Collector.Hex(),
		CreatedAt: cfg.CreatedAt,
		UpdatedAt: cfg.UpdatedAt,
	}
}

func fromFeeConfigModel(m *feeConfigModel) *fee.Config {
	return &fee.Config{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		BPS:       m.BPS,
		Collector: common.HexToAddress(m.Collector),
	}
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:streamledger_events"`

	ID       string            `grove:"id,pk"     bson:"_id"`
	StreamID *int64            `grove:"stream_id" bson:"stream_id,omitempty"`
	Kind     string            `grove:"kind"      bson:"kind"`
	Payload  map[string]string `grove:"payload"   bson:"payload,omitempty"`
	At       time.Time         `grove:"at"        bson:"at"`
}

func toEventModel(ev *event.Event) *eventModel {
	var streamID *int64
	if ev.StreamID != nil {
		v := int64(*ev.StreamID)
		streamID = &v
	}
	return &eventModel{
		ID:       ev.ID.String(),
		StreamID: streamID,
		Kind:     string(ev.Kind),
		Payload:  ev.Payload,
		At:       ev.At,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}

	var streamID *uint64
	if m.StreamID != nil {
		v := uint64(*m.StreamID)
		streamID = &v
	}
	return &event.Event{
		ID:       eventID,
		StreamID: streamID,
		Kind:     event.Kind(m.Kind),
		Payload:  m.Payload,
		At:       m.At,
	}, nil
}
