package streamledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// WithdrawResult reports how a withdrawal was split between the payout and
// the protocol fee. Both parts fit in 128 bits.
type WithdrawResult struct {
	Net *uint256.Int
	Fee *uint256.Int
}

// Withdraw collects amount from a stream's withdrawable balance and pays
// it to the destination, minus the protocol fee. The caller must be the
// certificate owner, its approved agent, or the stream's delegate. Funds
// are debited from the sender through the engine's spender allowance.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address, streamID uint64, to common.Address, amount *uint256.Int) (*WithdrawResult, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerOrDelegate(ctx, streamID, caller); err != nil {
		return nil, err
	}
	if to == zeroAddress {
		return nil, ErrInvalidRecipient
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}

	now := e.now()
	if amount.Gt(s.WithdrawableAmount(now)) {
		return nil, ErrExceedsWithdrawable
	}
	return e.performWithdraw(ctx, s, to, types.CloneAmount(amount), now)
}

// WithdrawMax collects everything currently collectable from a stream: the
// withdrawable balance, capped at what the sender's token balance covers.
// A stream with nothing collectable yields a zero result, not an error.
func (e *Engine) WithdrawMax(ctx context.Context, caller common.Address, streamID uint64, to common.Address) (*WithdrawResult, error) {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwnerOrDelegate(ctx, streamID, caller); err != nil {
		return nil, err
	}
	if to == zeroAddress {
		return nil, ErrInvalidRecipient
	}

	now := e.now()
	balance, err := e.tokens.BalanceOf(ctx, s.Token, s.Sender)
	if err != nil {
		return nil, err
	}
	amount := s.CoveredDebt(now, balance)
	if amount.IsZero() {
		return &WithdrawResult{Net: new(uint256.Int), Fee: new(uint256.Int)}, nil
	}
	return e.performWithdraw(ctx, s, to, amount, now)
}

// performWithdraw moves funds after the caller and amount have been
// validated: net to the destination, fee to the collector, bookkeeping on
// the stream and both metric sets.
func (e *Engine) performWithdraw(ctx context.Context, s *stream.Stream, to common.Address, amount *uint256.Int, now uint64) (*WithdrawResult, error) {
	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return nil, err
	}
	net, protocolFee := fee.Split(amount, cfg.BPS)
	if !types.FitsUint128(net) || !types.FitsUint128(protocolFee) {
		return nil, ErrAmountOverflow
	}
	if !protocolFee.IsZero() && cfg.Collector == zeroAddress {
		return nil, ErrNoFeeCollector
	}

	allowance, err := e.tokens.Allowance(ctx, s.Token, s.Sender, e.spender)
	if err != nil {
		return nil, err
	}
	if allowance.Lt(amount) {
		return nil, ErrInsufficientAllowance
	}

	// Both transfer legs settle or neither does: the balance must cover
	// net plus fee before the first leg moves.
	balance, err := e.tokens.BalanceOf(ctx, s.Token, s.Sender)
	if err != nil {
		return nil, err
	}
	if balance.Lt(amount) {
		return nil, ErrTransferFailed
	}

	ok, err := e.tokens.TransferFrom(ctx, s.Token, s.Sender, to, net)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTransferFailed
	}
	if !protocolFee.IsZero() {
		ok, err := e.tokens.TransferFrom(ctx, s.Token, s.Sender, cfg.Collector, protocolFee)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTransferFailed
		}
		if err := e.store.AccrueFees(ctx, tokenKey(s.Token), protocolFee); err != nil {
			return nil, err
		}
	}

	s.WithdrawnAmount = new(uint256.Int).Add(s.WithdrawnAmount, amount)
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return nil, err
	}

	sm, err := e.store.GetStreamMetrics(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if sm == nil {
		sm = stream.NewMetrics(s.ID)
	}
	sm.WithdrawalCount++
	sm.TotalWithdrawn.Add(sm.TotalWithdrawn, amount)
	if err := e.store.PutStreamMetrics(ctx, sm); err != nil {
		return nil, err
	}
	if err := e.bumpProtocolMetrics(ctx, func(m *metrics.Protocol) {
		m.Withdrawals++
	}); err != nil {
		return nil, err
	}
	if err := e.store.AddDistribution(ctx, tokenKey(s.Token), amount); err != nil {
		return nil, err
	}

	streamID := s.ID
	e.emit(event.KindWithdrawal, &streamID, map[string]string{
		"to":     addrHex(to),
		"amount": types.AmountString(amount),
		"net":    types.AmountString(net),
		"fee":    types.AmountString(protocolFee),
	})
	e.plugins.EmitWithdrawal(ctx, s, net, protocolFee)

	e.logger.Info("withdrawal",
		"stream_id", s.ID,
		"to", addrHex(to),
		"net", types.AmountString(net),
		"fee", types.AmountString(protocolFee),
	)

	return &WithdrawResult{Net: net, Fee: protocolFee}, nil
}
