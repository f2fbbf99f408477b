package streamledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. Every precondition
// violation rejects the whole operation with no partial mutation.
var (
	// Stream existence and identity
	ErrUnexistingStream         = errors.New("streamledger: stream does not exist")
	ErrWrongSender              = errors.New("streamledger: caller is not the stream sender")
	ErrWrongRecipientOrDelegate = errors.New("streamledger: caller is neither certificate owner, approved agent, nor delegate")
	ErrUnauthorized             = errors.New("streamledger: caller lacks required role")

	// Creation argument errors
	ErrInvalidRecipient = errors.New("streamledger: recipient address is zero")
	ErrInvalidToken     = errors.New("streamledger: token address is zero")
	ErrZeroAmount       = errors.New("streamledger: amount must be positive")
	ErrEndBeforeStart   = errors.New("streamledger: end time is not after start time")
	ErrTooShortDuration = errors.New("streamledger: duration must be at least one second")
	ErrDecimalsTooHigh  = errors.New("streamledger: token decimals exceed supported precision")

	// Lifecycle errors
	ErrInvalidTransition = errors.New("streamledger: status transition not allowed")
	ErrNotCancelable     = errors.New("streamledger: stream was created non-cancelable")
	ErrZeroRate          = errors.New("streamledger: rate must be positive")

	// Withdrawal errors
	ErrInsufficientAllowance = errors.New("streamledger: token allowance below requested amount")
	ErrExceedsWithdrawable   = errors.New("streamledger: amount exceeds withdrawable balance")
	ErrAmountOverflow        = errors.New("streamledger: amount exceeds 128-bit result range")
	ErrTransferFailed        = errors.New("streamledger: token transfer reported failure")

	// Delegation errors
	ErrInvalidDelegate = errors.New("streamledger: delegate address is zero")
	ErrNoDelegate      = errors.New("streamledger: stream has no delegate")

	// Protocol fee errors
	ErrFeeUnchanged        = errors.New("streamledger: fee percentage equals current value")
	ErrZeroFee             = errors.New("streamledger: fee percentage must be non-zero")
	ErrFeeTooHigh          = errors.New("streamledger: fee percentage exceeds 10000 basis points")
	ErrNoFeeCollector      = errors.New("streamledger: fee collector not configured")
	ErrInvalidFeeCollector = errors.New("streamledger: fee collector address is zero")
	ErrSameFeeCollector    = errors.New("streamledger: fee collector equals current value")
	ErrInvalidOwner        = errors.New("streamledger: protocol owner address is zero")
	ErrExceedsAccruedFees  = errors.New("streamledger: amount exceeds accrued protocol fees")

	// Infrastructure errors
	ErrEventBufferFull = errors.New("streamledger: event buffer full")
	ErrStoreClosed     = errors.New("streamledger: store is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("streamledger: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error indicates a missing stream.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnexistingStream)
}

// IsAuthorizationError returns true if the error is an identity or role
// check failure.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrWrongSender) ||
		errors.Is(err, ErrWrongRecipientOrDelegate)
}

// IsValidationError returns true if the error rejects the caller's
// arguments rather than the ledger's state.
func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRecipient),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrZeroAmount),
		errors.Is(err, ErrEndBeforeStart),
		errors.Is(err, ErrTooShortDuration),
		errors.Is(err, ErrDecimalsTooHigh),
		errors.Is(err, ErrZeroRate),
		errors.Is(err, ErrInvalidDelegate):
		return true
	}
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEventBufferFull)
}
