package stream

import (
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/types"
)

// Rate derives the constant fixed-point per-second release rate for a
// total amount over a duration in seconds: total * RateScale / duration.
// A zero duration yields a zero rate; callers reject zero durations before
// reaching this path.
func Rate(total *uint256.Int, duration uint64) *uint256.Int {
	if duration == 0 || total == nil || total.IsZero() {
		return new(uint256.Int)
	}
	scaled, overflow := new(uint256.Int).MulOverflow(total, types.RateScale)
	if overflow {
		// Saturate: amounts this close to 2^256 cannot stream precisely
		// anyway, and a capped rate keeps streamed <= total.
		return new(uint256.Int).Div(uint256.NewInt(0).Not(uint256.NewInt(0)), uint256.NewInt(duration))
	}
	return scaled.Div(scaled, uint256.NewInt(duration))
}

// clampTime bounds now into [start, end].
func clampTime(now, start, end uint64) uint64 {
	if now < start {
		return start
	}
	if now > end {
		return end
	}
	return now
}

// StreamedAmount is the cumulative amount released by now:
// min(rate * (clamp(now, start, end) - start) / RateScale, total).
// It is independent of how much has actually been withdrawn. While the
// stream is paused the clock is frozen at LastUpdateTime, the moment the
// pause took effect.
func (s *Stream) StreamedAmount(now uint64) *uint256.Int {
	if !s.Exists() || s.RatePerSecond == nil {
		return new(uint256.Int)
	}
	if s.Status == StatusPaused && s.LastUpdateTime < now {
		now = s.LastUpdateTime
	}
	elapsed := clampTime(now, s.StartTime, s.EndTime) - s.StartTime
	if elapsed == 0 {
		return new(uint256.Int)
	}

	released, overflow := new(uint256.Int).MulOverflow(s.RatePerSecond, uint256.NewInt(elapsed))
	if overflow {
		return types.CloneAmount(s.TotalAmount)
	}
	released.Div(released, types.RateScale)

	if s.TotalAmount != nil && released.Gt(s.TotalAmount) {
		return types.CloneAmount(s.TotalAmount)
	}
	return released
}

// WithdrawableAmount is the streamed amount minus what has already been
// withdrawn, clamped at zero.
func (s *Stream) WithdrawableAmount(now uint64) *uint256.Int {
	streamed := s.StreamedAmount(now)
	if s.WithdrawnAmount == nil || streamed.Lt(s.WithdrawnAmount) {
		if s.WithdrawnAmount == nil {
			return streamed
		}
		return new(uint256.Int)
	}
	return streamed.Sub(streamed, s.WithdrawnAmount)
}

// TotalDebt is the streamed-but-unwithdrawn amount owed to the recipient.
func (s *Stream) TotalDebt(now uint64) *uint256.Int {
	return s.WithdrawableAmount(now)
}

// CoveredDebt is the part of the debt backed by the sender's current token
// balance: min(withdrawable, balance).
func (s *Stream) CoveredDebt(now uint64, senderBalance *uint256.Int) *uint256.Int {
	debt := s.WithdrawableAmount(now)
	if senderBalance == nil || senderBalance.Lt(debt) {
		return types.CloneAmount(senderBalance)
	}
	return debt
}

// UncoveredDebt is the part of the debt the sender's balance cannot back,
// clamped at zero.
func (s *Stream) UncoveredDebt(now uint64, senderBalance *uint256.Int) *uint256.Int {
	debt := s.WithdrawableAmount(now)
	covered := s.CoveredDebt(now, senderBalance)
	return debt.Sub(debt, covered)
}

// RefundableAmount is the part of the total commitment not yet released,
// the amount returned to the sender on cancellation.
func (s *Stream) RefundableAmount(now uint64) *uint256.Int {
	streamed := s.StreamedAmount(now)
	if s.TotalAmount == nil || s.TotalAmount.Lt(streamed) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(s.TotalAmount, streamed)
}

// DepletionTime is the timestamp at which the streamed amount reaches the
// total commitment. That is the end time unless the sender's balance
// cannot cover the outstanding debt plus the remaining release at the
// current rate, in which case it is the projected moment the balance runs
// out.
func (s *Stream) DepletionTime(now uint64, senderBalance *uint256.Int) uint64 {
	if !s.Exists() {
		return 0
	}
	if s.RatePerSecond == nil || s.RatePerSecond.IsZero() {
		return s.EndTime
	}

	outstanding := s.WithdrawableAmount(now)
	balance := types.CloneAmount(senderBalance)
	if balance.Lt(outstanding) || balance.Eq(outstanding) {
		// Debt already exceeds the balance: depleted as of now.
		return clampTime(now, s.StartTime, s.EndTime)
	}

	remaining := s.RefundableAmount(now)
	spendable := balance.Sub(balance, outstanding)
	if !spendable.Lt(remaining) {
		return s.EndTime
	}

	// Seconds of runway left at the current fixed-point rate.
	runway, overflow := spendable.MulOverflow(spendable, types.RateScale)
	if overflow {
		return s.EndTime
	}
	runway.Div(runway, s.RatePerSecond)

	at := clampTime(now, s.StartTime, s.EndTime)
	if !runway.IsUint64() {
		return s.EndTime
	}
	depletion := at + runway.Uint64()
	if depletion > s.EndTime {
		return s.EndTime
	}
	return depletion
}
