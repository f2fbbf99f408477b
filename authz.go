package streamledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/stream"
)

var zeroAddress common.Address

// requireSender rejects callers other than the stream's funding sender.
func requireSender(s *stream.Stream, caller common.Address) error {
	if caller != s.Sender {
		return ErrWrongSender
	}
	return nil
}

// requireOwnerOrDelegate resolves the three-way withdrawal capability:
// the certificate owner, the certificate's approved agent, or the
// stream's current delegate. Any one suffices.
func (e *Engine) requireOwnerOrDelegate(ctx context.Context, streamID uint64, caller common.Address) error {
	owner, err := e.certs.OwnerOf(ctx, streamID)
	if err != nil {
		return err
	}
	if caller == owner && owner != zeroAddress {
		return nil
	}

	approved, err := e.certs.Approved(ctx, streamID)
	if err != nil {
		return err
	}
	if caller == approved && approved != zeroAddress {
		return nil
	}

	delegate, err := e.store.GetDelegate(ctx, streamID)
	if err != nil {
		return err
	}
	if caller == delegate && delegate != zeroAddress {
		return nil
	}

	return ErrWrongRecipientOrDelegate
}

// requireRole rejects callers lacking the given protocol role.
func (e *Engine) requireRole(ctx context.Context, role access.Role, caller common.Address) error {
	ok, err := e.roles.HasRole(ctx, role, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// loadStream reads a stream and enforces existence: a record whose sender
// is the zero address does not exist.
func (e *Engine) loadStream(ctx context.Context, streamID uint64) (*stream.Stream, error) {
	s, err := e.store.GetStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if !s.Exists() {
		return nil, ErrUnexistingStream
	}
	return s, nil
}
