// Package audithook bridges StreamLedger lifecycle events to an audit
// trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/plugin"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnStreamCreated         = (*Extension)(nil)
	_ plugin.OnStreamPaused          = (*Extension)(nil)
	_ plugin.OnStreamRestarted       = (*Extension)(nil)
	_ plugin.OnStreamCanceled        = (*Extension)(nil)
	_ plugin.OnStreamVoided          = (*Extension)(nil)
	_ plugin.OnRateUpdated           = (*Extension)(nil)
	_ plugin.OnWithdrawal            = (*Extension)(nil)
	_ plugin.OnDelegationGranted     = (*Extension)(nil)
	_ plugin.OnDelegationRevoked     = (*Extension)(nil)
	_ plugin.OnProtocolFeeUpdated   = (*Extension)(nil)
	_ plugin.OnFeeCollectorUpdated  = (*Extension)(nil)
	_ plugin.OnProtocolOwnerUpdated = (*Extension)(nil)
	_ plugin.OnProtocolFeeWithdrawn = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly. Callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges StreamLedger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamCreated, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"sender", addr(s.Sender),
		"token", addr(s.Token),
		"total_amount", types.AmountString(s.TotalAmount),
		"start_time", s.StartTime,
		"end_time", s.EndTime,
	)
}

// OnStreamPaused implements plugin.OnStreamPaused.
func (e *Extension) OnStreamPaused(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamPaused, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"sender", addr(s.Sender),
	)
}

// OnStreamRestarted implements plugin.OnStreamRestarted.
func (e *Extension) OnStreamRestarted(ctx context.Context, s *stream.Stream) error {
	return e.record(ctx, ActionStreamRestarted, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"sender", addr(s.Sender),
		"end_time", s.EndTime,
	)
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (e *Extension) OnStreamCanceled(ctx context.Context, s *stream.Stream, refunded *uint256.Int) error {
	return e.record(ctx, ActionStreamCanceled, SeverityWarning, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"sender", addr(s.Sender),
		"refunded", types.AmountString(refunded),
	)
}

// OnStreamVoided implements plugin.OnStreamVoided.
func (e *Extension) OnStreamVoided(ctx context.Context, s *stream.Stream, forgiven *uint256.Int) error {
	return e.record(ctx, ActionStreamVoided, SeverityWarning, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"sender", addr(s.Sender),
		"forgiven", types.AmountString(forgiven),
	)
}

// OnRateUpdated implements plugin.OnRateUpdated.
func (e *Extension) OnRateUpdated(ctx context.Context, s *stream.Stream, rate *uint256.Int) error {
	return e.record(ctx, ActionRateUpdated, SeverityInfo, OutcomeSuccess,
		ResourceStream, streamID(s), CategoryStreaming, nil,
		"rate_per_second", types.AmountString(rate),
	)
}

// ──────────────────────────────────────────────────
// Withdrawal hooks
// ──────────────────────────────────────────────────

// OnWithdrawal implements plugin.OnWithdrawal.
func (e *Extension) OnWithdrawal(ctx context.Context, s *stream.Stream, net, fee *uint256.Int) error {
	return e.record(ctx, ActionWithdrawal, SeverityInfo, OutcomeSuccess,
		ResourceWithdrawal, streamID(s), CategoryPayout, nil,
		"token", addr(s.Token),
		"net", types.AmountString(net),
		"fee", types.AmountString(fee),
	)
}

// ──────────────────────────────────────────────────
// Delegation hooks
// ──────────────────────────────────────────────────

// OnDelegationGranted implements plugin.OnDelegationGranted.
func (e *Extension) OnDelegationGranted(ctx context.Context, id uint64, delegate common.Address) error {
	return e.record(ctx, ActionDelegationGranted, SeverityInfo, OutcomeSuccess,
		ResourceDelegation, strconv.FormatUint(id, 10), CategoryAccess, nil,
		"delegate", addr(delegate),
	)
}

// OnDelegationRevoked implements plugin.OnDelegationRevoked.
func (e *Extension) OnDelegationRevoked(ctx context.Context, id uint64, delegate common.Address) error {
	return e.record(ctx, ActionDelegationRevoked, SeverityInfo, OutcomeSuccess,
		ResourceDelegation, strconv.FormatUint(id, 10), CategoryAccess, nil,
		"delegate", addr(delegate),
	)
}

// ──────────────────────────────────────────────────
// Protocol hooks
// ──────────────────────────────────────────────────

// OnProtocolFeeUpdated implements plugin.OnProtocolFeeUpdated.
func (e *Extension) OnProtocolFeeUpdated(ctx context.Context, previousBPS, bps uint16) error {
	return e.record(ctx, ActionProtocolFeeUpdated, SeverityWarning, OutcomeSuccess,
		ResourceProtocol, "", CategoryGovernance, nil,
		"previous_bps", previousBPS,
		"bps", bps,
	)
}

// OnFeeCollectorUpdated implements plugin.OnFeeCollectorUpdated.
func (e *Extension) OnFeeCollectorUpdated(ctx context.Context, previous, collector common.Address) error {
	return e.record(ctx, ActionFeeCollectorUpdated, SeverityWarning, OutcomeSuccess,
		ResourceProtocol, "", CategoryGovernance, nil,
		"previous", addr(previous),
		"collector", addr(collector),
	)
}

// OnProtocolOwnerUpdated implements plugin.OnProtocolOwnerUpdated.
func (e *Extension) OnProtocolOwnerUpdated(ctx context.Context, previous, owner common.Address) error {
	return e.record(ctx, ActionProtocolOwnerUpdated, SeverityCritical, OutcomeSuccess,
		ResourceProtocol, "", CategoryGovernance, nil,
		"previous", addr(previous),
		"owner", addr(owner),
	)
}

// OnProtocolFeeWithdrawn implements plugin.OnProtocolFeeWithdrawn.
func (e *Extension) OnProtocolFeeWithdrawn(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	return e.record(ctx, ActionProtocolFeeWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceProtocol, "", CategoryGovernance, nil,
		"token", addr(token),
		"to", addr(to),
		"amount", types.AmountString(amount),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func streamID(s *stream.Stream) string {
	return strconv.FormatUint(s.ID, 10)
}

func addr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
