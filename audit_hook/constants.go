package audithook

// Action constants for audit events.
const (
	// Stream actions
	ActionStreamCreated   = "stream.created"
	ActionStreamPaused    = "stream.paused"
	ActionStreamRestarted = "stream.restarted"
	ActionStreamCanceled  = "stream.canceled"
	ActionStreamVoided    = "stream.voided"
	ActionRateUpdated     = "stream.rate_updated"

	// Withdrawal actions
	ActionWithdrawal = "withdrawal.executed"

	// Delegation actions
	ActionDelegationGranted = "delegation.granted"
	ActionDelegationRevoked = "delegation.revoked"

	// Protocol actions
	ActionProtocolFeeUpdated   = "protocol.fee_updated"
	ActionFeeCollectorUpdated  = "protocol.collector_updated"
	ActionProtocolOwnerUpdated = "protocol.owner_updated"
	ActionProtocolFeeWithdrawn = "protocol.fee_withdrawn"
)

// Resource constants for audit events.
const (
	ResourceStream     = "stream"
	ResourceWithdrawal = "withdrawal"
	ResourceDelegation = "delegation"
	ResourceProtocol   = "protocol"
)

// Category constants for audit events.
const (
	CategoryStreaming  = "streaming"
	CategoryPayout     = "payout"
	CategoryAccess     = "access"
	CategoryGovernance = "governance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
