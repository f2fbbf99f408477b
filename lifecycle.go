package streamledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// PauseStream halts release accrual on an active stream. Sender-only.
// Amounts streamed before the pause remain withdrawable.
func (e *Engine) PauseStream(ctx context.Context, caller common.Address, streamID uint64) error {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return err
	}
	if err := requireSender(s, caller); err != nil {
		return err
	}
	if !stream.CanTransition(s.Status, stream.StatusPaused) {
		return ErrInvalidTransition
	}

	now := e.now()
	s.Status = stream.StatusPaused
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return err
	}

	e.emit(event.KindStreamPaused, &streamID, map[string]string{
		"paused_at": u64String(now),
	})
	e.plugins.EmitStreamPaused(ctx, s)

	e.logger.Info("stream paused", "stream_id", streamID)
	return nil
}

// RestartStream resumes accrual on a paused stream at the given rate; a
// nil rate keeps the rate the pause froze. Sender-only. The schedule
// shifts forward by the paused duration so the release picks up exactly
// where the pause froze it.
func (e *Engine) RestartStream(ctx context.Context, caller common.Address, streamID uint64, rate *uint256.Int) error {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return err
	}
	if err := requireSender(s, caller); err != nil {
		return err
	}
	if !stream.CanTransition(s.Status, stream.StatusActive) {
		return ErrInvalidTransition
	}
	if rate != nil && rate.IsZero() {
		return ErrZeroRate
	}

	now := e.now()
	if now > s.LastUpdateTime {
		pausedFor := now - s.LastUpdateTime
		s.StartTime += pausedFor
		s.EndTime += pausedFor
	}
	if rate != nil {
		s.RatePerSecond = types.CloneAmount(rate)
	}
	s.Status = stream.StatusActive
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return err
	}

	e.emit(event.KindStreamRestarted, &streamID, map[string]string{
		"restarted_at": u64String(now),
		"end_time":     u64String(s.EndTime),
		"rate":         types.AmountString(s.RatePerSecond),
	})
	e.plugins.EmitStreamRestarted(ctx, s)

	e.logger.Info("stream restarted", "stream_id", streamID)
	return nil
}

// CancelStream permanently stops an active stream, returning the
// unstreamed remainder to the sender. The caller must hold the
// stream-admin role and the stream must have been created cancelable.
// Debt accrued before cancellation stays withdrawable.
func (e *Engine) CancelStream(ctx context.Context, caller common.Address, streamID uint64) error {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return err
	}
	if err := e.requireRole(ctx, access.RoleStreamAdmin, caller); err != nil {
		return err
	}
	if !s.Cancelable {
		return ErrNotCancelable
	}
	if !stream.CanTransition(s.Status, stream.StatusCanceled) {
		return ErrInvalidTransition
	}

	now := e.now()
	refunded := s.RefundableAmount(now)

	s.Status = stream.StatusCanceled
	if now < s.EndTime {
		s.EndTime = now
		if s.EndTime < s.StartTime {
			s.EndTime = s.StartTime
		}
	}
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return err
	}

	if err := e.bumpProtocolMetrics(ctx, func(m *metrics.Protocol) {
		if m.ActiveStreams > 0 {
			m.ActiveStreams--
		}
	}); err != nil {
		return err
	}

	e.emit(event.KindStreamCanceled, &streamID, map[string]string{
		"canceled_at": u64String(now),
		"refunded":    types.AmountString(refunded),
	})
	e.plugins.EmitStreamCanceled(ctx, s, refunded)

	e.logger.Info("stream canceled",
		"stream_id", streamID,
		"refunded", types.AmountString(refunded),
	)
	return nil
}

// VoidStream terminates a stream and writes off every unwithdrawn amount,
// leaving nothing further to collect. Either side may void: the sender, or
// whoever holds or may act on the recipient certificate.
func (e *Engine) VoidStream(ctx context.Context, caller common.Address, streamID uint64) error {
	s, err := e.loadStream(ctx, streamID)
	if err != nil {
		return err
	}
	if senderErr := requireSender(s, caller); senderErr != nil {
		if recipErr := e.requireOwnerOrDelegate(ctx, streamID, caller); recipErr != nil {
			if errors.Is(recipErr, ErrWrongRecipientOrDelegate) {
				return ErrUnauthorized
			}
			return recipErr
		}
	}
	if !stream.CanTransition(s.Status, stream.StatusVoided) {
		return ErrInvalidTransition
	}

	now := e.now()
	forgiven := s.WithdrawableAmount(now)

	s.Status = stream.StatusVoided
	// Collapsing the commitment to the withdrawn amount zeroes both the
	// outstanding debt and any future release.
	s.TotalAmount = types.CloneAmount(s.WithdrawnAmount)
	if now < s.EndTime {
		s.EndTime = now
		if s.EndTime < s.StartTime {
			s.EndTime = s.StartTime
		}
	}
	s.LastUpdateTime = now
	s.Touch()
	if err := e.store.UpdateStream(ctx, s); err != nil {
		return err
	}

	if err := e.bumpProtocolMetrics(ctx, func(m *metrics.Protocol) {
		if m.ActiveStreams > 0 {
			m.ActiveStreams--
		}
	}); err != nil {
		return err
	}

	e.emit(event.KindStreamVoided, &streamID, map[string]string{
		"voided_at": u64String(now),
		"forgiven":  types.AmountString(forgiven),
	})
	e.plugins.EmitStreamVoided(ctx, s, forgiven)

	e.logger.Info("stream voided",
		"stream_id", streamID,
		"forgiven", types.AmountString(forgiven),
	)
	return nil
}
