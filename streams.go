package streamledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// CreateStreamParams are the arguments to CreateStream. Sender is the
// caller funding the stream.
type CreateStreamParams struct {
	Sender      common.Address
	Recipient   common.Address
	Token       common.Address
	TotalAmount *uint256.Int
	StartTime   uint64
	EndTime     uint64
	Cancelable  bool
}

// CreateStream commits TotalAmount of Token to be released linearly from
// StartTime to EndTime, mints the ownership certificate to the recipient,
// and grants the sender the stream-admin role. It returns the assigned
// stream id.
func (e *Engine) CreateStream(ctx context.Context, p CreateStreamParams) (uint64, error) {
	if p.Recipient == zeroAddress {
		return 0, ErrInvalidRecipient
	}
	if p.Token == zeroAddress {
		return 0, ErrInvalidToken
	}
	if p.TotalAmount == nil || p.TotalAmount.IsZero() {
		return 0, ErrZeroAmount
	}
	if p.EndTime < p.StartTime {
		return 0, ErrEndBeforeStart
	}
	if p.EndTime == p.StartTime {
		return 0, ErrTooShortDuration
	}

	decimals, err := e.tokens.Decimals(ctx, p.Token)
	if err != nil {
		return 0, err
	}
	if decimals > types.MaxTokenDecimals {
		return 0, ErrDecimalsTooHigh
	}

	now := e.now()
	duration := p.EndTime - p.StartTime

	s := &stream.Stream{
		Entity:          types.NewEntity(),
		Sender:          p.Sender,
		Token:           p.Token,
		TokenDecimals:   decimals,
		TotalAmount:     types.CloneAmount(p.TotalAmount),
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		WithdrawnAmount: types.ZeroAmount(),
		Cancelable:      p.Cancelable,
		Status:          stream.StatusActive,
		RatePerSecond:   stream.Rate(p.TotalAmount, duration),
		LastUpdateTime:  now,
	}

	streamID, err := e.store.CreateStream(ctx, s)
	if err != nil {
		return 0, err
	}
	s.ID = streamID

	if err := e.certs.Mint(ctx, p.Recipient, streamID); err != nil {
		return 0, err
	}
	if err := e.roles.GrantRole(ctx, access.RoleStreamAdmin, p.Sender); err != nil {
		return 0, err
	}

	if err := e.store.PutStreamMetrics(ctx, stream.NewMetrics(streamID)); err != nil {
		return 0, err
	}
	if err := e.bumpProtocolMetrics(ctx, func(m *metrics.Protocol) {
		m.StreamsCreated++
		m.ActiveStreams++
	}); err != nil {
		return 0, err
	}

	e.emit(event.KindStreamCreated, &streamID, map[string]string{
		"sender":       addrHex(p.Sender),
		"recipient":    addrHex(p.Recipient),
		"token":        addrHex(p.Token),
		"total_amount": types.AmountString(p.TotalAmount),
		"start_time":   u64String(p.StartTime),
		"end_time":     u64String(p.EndTime),
		"rate":         types.AmountString(s.RatePerSecond),
	})
	e.plugins.EmitStreamCreated(ctx, s)

	e.logger.Info("stream created",
		"stream_id", streamID,
		"sender", addrHex(p.Sender),
		"token", addrHex(p.Token),
		"total_amount", types.AmountString(p.TotalAmount),
	)

	return streamID, nil
}

// GetStream retrieves a stream by id.
func (e *Engine) GetStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	return e.loadStream(ctx, streamID)
}

// IsStreamActive reports whether the stream exists and is in the Active
// status.
func (e *Engine) IsStreamActive(ctx context.Context, streamID uint64) (bool, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return false, err
	}
	return s.Status == stream.StatusActive, nil
}

// TokenDecimals returns the token precision captured when the stream was
// created.
func (e *Engine) TokenDecimals(ctx context.Context, streamID uint64) (uint8, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return 0, err
	}
	return s.TokenDecimals, nil
}

// WithdrawableAmount is the streamed-to-date amount not yet withdrawn.
func (e *Engine) WithdrawableAmount(ctx context.Context, streamID uint64) (*uint256.Int, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return s.WithdrawableAmount(e.now()), nil
}

// TotalDebt is the streamed-but-unwithdrawn amount owed to the recipient.
func (e *Engine) TotalDebt(ctx context.Context, streamID uint64) (*uint256.Int, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return s.TotalDebt(e.now()), nil
}

// CoveredDebt is the part of the debt backed by the sender's current token
// balance.
func (e *Engine) CoveredDebt(ctx context.Context, streamID uint64) (*uint256.Int, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	balance, err := e.tokens.BalanceOf(ctx, s.Token, s.Sender)
	if err != nil {
		return nil, err
	}
	return s.CoveredDebt(e.now(), balance), nil
}

// UncoveredDebt is the part of the debt the sender's balance cannot back.
func (e *Engine) UncoveredDebt(ctx context.Context, streamID uint64) (*uint256.Int, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	balance, err := e.tokens.BalanceOf(ctx, s.Token, s.Sender)
	if err != nil {
		return nil, err
	}
	return s.UncoveredDebt(e.now(), balance), nil
}

// RefundableAmount is the part of the total commitment not yet released,
// returned to the sender on cancellation.
func (e *Engine) RefundableAmount(ctx context.Context, streamID uint64) (*uint256.Int, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return s.RefundableAmount(e.now()), nil
}

// DepletionTime projects when the stream's entitlement is exhausted: the
// end time, or earlier if the sender's balance cannot sustain the rate.
func (e *Engine) DepletionTime(ctx context.Context, streamID uint64) (uint64, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return 0, err
	}
	balance, err := e.tokens.BalanceOf(ctx, s.Token, s.Sender)
	if err != nil {
		return 0, err
	}
	return s.DepletionTime(e.now(), balance), nil
}

// UpdateStreamRate replaces the per-second release rate of an active
// stream. Sender-only.
func (e *Engine) UpdateStreamRate(ctx context.Context, caller common.Address, streamID uint64, rate *uint256.Int) error {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return err
	}
	if err := requireSender(s, caller); err != nil {
		return err
	}
	if s.Status != stream.StatusActive {
		return ErrInvalidTransition
	}
	if rate == nil || rate.IsZero() {
		return ErrZeroRate
	}

	now := e.now()
	s.RatePerSecond = types.CloneAmount(rate)
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return err
	}

	e.emit(event.KindRateUpdated, &streamID, map[string]string{
		"rate": types.AmountString(rate),
	})
	e.plugins.EmitRateUpdated(ctx, s, types.CloneAmount(rate))

	return nil
}
