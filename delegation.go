package streamledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
)

// requireCertificateHolder passes only for the certificate owner.
// Approved agents may withdraw but not manage delegations, and a
// delegate cannot re-delegate.
func (e *Engine) requireCertificateHolder(ctx context.Context, streamID uint64, caller common.Address) error {
	owner, err := e.certs.OwnerOf(ctx, streamID)
	if err != nil {
		return err
	}
	if owner != zeroAddress && owner == caller {
		return nil
	}
	return ErrWrongRecipientOrDelegate
}

// DelegateStream grants an address the right to withdraw from a stream on
// the certificate holder's behalf. A stream carries at most one delegate;
// granting again replaces it. Every grant is appended to the stream's
// permanent delegation history.
func (e *Engine) DelegateStream(ctx context.Context, caller common.Address, streamID uint64, delegate common.Address) error {
	if _, err := e.loadStream(ctx, streamID); err != nil {
		return err
	}
	if err := e.requireCertificateHolder(ctx, streamID, caller); err != nil {
		return err
	}
	if delegate == zeroAddress {
		return ErrInvalidDelegate
	}

	if err := e.store.SetDelegate(ctx, streamID, delegate); err != nil {
		return err
	}
	if err := e.store.AppendGrant(ctx, &delegation.Grant{
		ID:        id.NewGrantID(),
		StreamID:  streamID,
		Delegate:  delegate,
		GrantedBy: caller,
		GrantedAt: e.nowFn().UTC(),
	}); err != nil {
		return err
	}

	sm, err := e.store.GetStreamMetrics(ctx, streamID)
	if err != nil {
		return err
	}
	if sm == nil {
		sm = stream.NewMetrics(streamID)
	}
	sm.DelegationCount++
	if err := e.store.PutStreamMetrics(ctx, sm); err != nil {
		return err
	}
	if err := e.bumpProtocolMetrics(ctx, func(m *metrics.Protocol) {
		m.Delegations++
	}); err != nil {
		return err
	}

	e.emit(event.KindDelegationGranted, &streamID, map[string]string{
		"delegate":   addrHex(delegate),
		"granted_by": addrHex(caller),
	})
	e.plugins.EmitDelegationGranted(ctx, streamID, delegate)

	e.logger.Info("delegation granted",
		"stream_id", streamID,
		"delegate", addrHex(delegate),
	)
	return nil
}

// RevokeDelegation clears a stream's current delegate. The grant history
// is untouched. Revoking a stream with no delegate fails.
func (e *Engine) RevokeDelegation(ctx context.Context, caller common.Address, streamID uint64) error {
	if _, err := e.loadStream(ctx, streamID); err != nil {
		return err
	}
	if err := e.requireCertificateHolder(ctx, streamID, caller); err != nil {
		return err
	}

	current, err := e.store.GetDelegate(ctx, streamID)
	if err != nil {
		return err
	}
	if current == zeroAddress {
		return ErrNoDelegate
	}
	if err := e.store.SetDelegate(ctx, streamID, common.Address{}); err != nil {
		return err
	}

	e.emit(event.KindDelegationRevoked, &streamID, map[string]string{
		"delegate":   addrHex(current),
		"revoked_by": addrHex(caller),
	})
	e.plugins.EmitDelegationRevoked(ctx, streamID, current)

	e.logger.Info("delegation revoked",
		"stream_id", streamID,
		"delegate", addrHex(current),
	)
	return nil
}

// StreamDelegate returns the stream's current delegate, or the zero
// address when none is set.
func (e *Engine) StreamDelegate(ctx context.Context, streamID uint64) (common.Address, error) {
	if _, err := e.loadStream(ctx, streamID); err != nil {
		return common.Address{}, err
	}
	return e.store.GetDelegate(ctx, streamID)
}

// DelegationHistory returns every grant ever made on a stream, oldest
// first.
func (e *Engine) DelegationHistory(ctx context.Context, streamID uint64) ([]*delegation.Grant, error) {
	if _, err := e.loadStream(ctx, streamID); err != nil {
		return nil, err
	}
	return e.store.DelegationHistory(ctx, streamID)
}
