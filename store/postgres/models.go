package postgres

import (
	"encoding/json"
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
// values survive the round trip exactly.

// ==================== Stream models ====================

type streamModel struct {
	grove.BaseModel `grove:"table:streamledger_streams"`

	ID              uint64    `grove:"id,pk"`
	Sender          string    `grove:"sender"`
	Token           string    `grove:"token"`
	TokenDecimals   uint8     `grove:"token_decimals"`
	TotalAmount     string    `grove:"total_amount"`
	WithdrawnAmount string    `grove:"withdrawn_amount"`
	RatePerSecond   string    `grove:"rate_per_second"`
	StartTime       uint64    `grove:"start_time"`
	EndTime         uint64    `grove:"end_time"`
	LastUpdateTime  uint64    `grove:"last_update_time"`
	Cancelable      bool      `grove:"cancelable"`
	Status          string    `grove:"status"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
}

func toStreamModel(st *stream.Stream) *streamModel {
	return &streamModel{
		ID:              st.ID,
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
		ID:              m.ID,
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

	StreamID        uint64 `grove:"stream_id,pk"`
	WithdrawalCount uint64 `grove:"withdrawal_count"`
	TotalWithdrawn  string `grove:"total_withdrawn"`
	DelegationCount uint64 `grove:"delegation_count"`
}

func toStreamMetricsModel(m *stream.Metrics) *streamMetricsModel {
	return &streamMetricsModel{
		StreamID:        m.StreamID,
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
		StreamID:        m.StreamID,
		WithdrawalCount: m.WithdrawalCount,
		TotalWithdrawn:  total,
		DelegationCount: m.DelegationCount,
	}, nil
}

// ==================== Delegation models ====================

type delegateModel struct {
	grove.BaseModel `grove:"table:streamledger_delegates"`

	StreamID uint64 `grove:"stream_id,pk"`
	Delegate string `grove:"delegate"`
}

type grantModel struct {
	grove.BaseModel `grove:"table:streamledger_delegation_grants"`

	ID        string    `grove:"id,pk"`
	StreamID  uint64    `grove:"stream_id"`
	Delegate  string    `grove:"delegate"`
	GrantedBy string    `grove:"granted_by"`
	GrantedAt time.Time `grove:"granted_at"`
}

func toGrantModel(g *delegation.Grant) *grantModel {
	return &grantModel{
		ID:        g.ID.String(),
		StreamID:  g.StreamID,
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
		StreamID:  m.StreamID,
		Delegate:  common.HexToAddress(m.Delegate),
		GrantedBy: common.HexToAddress(m.GrantedBy),
		GrantedAt: m.GrantedAt,
	}, nil
}

// ==================== Metrics models ====================

type protocolMetricsModel struct {
	grove.BaseModel `grove:"table:streamledger_protocol_metrics"`

	ID             int    `grove:"id,pk"`
	StreamsCreated uint64 `grove:"streams_created"`
	ActiveStreams  uint64 `grove:"active_streams"`
	Delegations    uint64 `grove:"delegations"`
	Withdrawals    uint64 `grove:"withdrawals"`
}

type distributionModel struct {
	grove.BaseModel `grove:"table:streamledger_distributions"`

	Token string `grove:"token,pk"`
	Total string `grove:"total"`
}

// ==================== Fee models ====================

type feeConfigModel struct {
	grove.BaseModel `grove:"table:streamledger_fee_config"`

	ID        int       `grove:"id,pk"`
	BPS       uint16    `grove:"bps"`
	Collector string    `grove:"collector"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toFeeConfigModel(cfg *fee.Config) *feeConfigModel {
	return &feeConfigModel{
		ID:        singletonRow,
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

type accruedFeeModel struct {
	grove.BaseModel `grove:"table:streamledger_accrued_fees"`

	Token string `grove:"token,pk"`
	Total string `grove:"total"`
}

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:streamledger_events"`

	ID       string          `grove:"id,pk"`
	StreamID *uint64         `grove:"stream_id"`
	Kind     string          `grove:"kind"`
	Payload  json.RawMessage `grove:"payload,type:jsonb"`
	At       time.Time       `grove:"at"`
}

func toEventModel(ev *event.Event) *eventModel {
	payload, _ := json.Marshal(ev.Payload) //nolint:errcheck // best-effort

	return &eventModel{
		ID:       ev.ID.String(),
		StreamID: ev.StreamID,
		Kind:     string(ev.Kind),
		Payload:  payload,
		At:       ev.At,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if len(m.Payload) > 0 && string(m.Payload) != "null" {
		_ = json.Unmarshal(m.Payload, &payload) //nolint:errcheck // best-effort
	}

	return &event.Event{
		ID:       eventID,
		StreamID: m.StreamID,
		Kind:     event.Kind(m.Kind),
		Payload:  payload,
		At:       m.At,
	}, nil
}
