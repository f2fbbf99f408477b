package streamledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/types"
)

// ProtocolFee returns the current fee in basis points.
func (e *Engine) ProtocolFee(ctx context.Context) (uint16, error) {
	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.BPS, nil
}

// FeeCollector returns the address that receives collected protocol fees.
func (e *Engine) FeeCollector(ctx context.Context) (common.Address, error) {
	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return cfg.Collector, nil
}

// AccruedProtocolFees returns the collected-but-unwithdrawn fee balance
// for a token.
func (e *Engine) AccruedProtocolFees(ctx context.Context, token common.Address) (*uint256.Int, error) {
	return e.store.AccruedFees(ctx, tokenKey(token))
}

// UpdateProtocolFee sets the protocol fee in basis points. Protocol-owner
// only. Streams withdraw at whatever fee is current at withdrawal time.
func (e *Engine) UpdateProtocolFee(ctx context.Context, caller common.Address, bps uint16) error {
	if err := e.requireRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return err
	}
	if bps == 0 {
		return ErrZeroFee
	}
	if bps > fee.MaxBPS {
		return ErrFeeTooHigh
	}

	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.BPS == bps {
		return ErrFeeUnchanged
	}

	previous := cfg.BPS
	cfg.BPS = bps
	cfg.Touch()
	if err := e.store.PutFeeConfig(ctx, cfg); err != nil {
		return err
	}

	e.emit(event.KindProtocolFeeUpdated, nil, map[string]string{
		"previous_bps": u64String(uint64(previous)),
		"bps":          u64String(uint64(bps)),
	})
	e.plugins.EmitProtocolFeeUpdated(ctx, previous, bps)

	e.logger.Info("protocol fee updated", "previous_bps", previous, "bps", bps)
	return nil
}

// UpdateFeeCollector changes the collector address. Protocol-owner only.
// Fees already accrued stay withdrawable; only future collections land at
// the new address.
func (e *Engine) UpdateFeeCollector(ctx context.Context, caller, collector common.Address) error {
	if err := e.requireRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return err
	}
	if collector == zeroAddress {
		return ErrInvalidFeeCollector
	}

	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Collector == collector {
		return ErrSameFeeCollector
	}

	previous := cfg.Collector
	cfg.Collector = collector
	cfg.Touch()
	if err := e.store.PutFeeConfig(ctx, cfg); err != nil {
		return err
	}

	e.emit(event.KindFeeCollectorUpdated, nil, map[string]string{
		"previous_collector": addrHex(previous),
		"collector":          addrHex(collector),
	})
	e.plugins.EmitFeeCollectorUpdated(ctx, previous, collector)

	e.logger.Info("fee collector updated", "collector", addrHex(collector))
	return nil
}

// UpdateProtocolOwner hands the protocol-owner role to a new address and
// revokes it from the caller.
func (e *Engine) UpdateProtocolOwner(ctx context.Context, caller, newOwner common.Address) error {
	if err := e.requireRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return err
	}
	if newOwner == zeroAddress {
		return ErrInvalidOwner
	}

	if err := e.roles.GrantRole(ctx, access.RoleProtocolOwner, newOwner); err != nil {
		return err
	}
	if err := e.roles.RevokeRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return err
	}

	e.emit(event.KindProtocolOwnerUpdated, nil, map[string]string{
		"previous_owner": addrHex(caller),
		"owner":          addrHex(newOwner),
	})
	e.plugins.EmitProtocolOwnerUpdated(ctx, caller, newOwner)

	e.logger.Info("protocol owner updated", "owner", addrHex(newOwner))
	return nil
}

// WithdrawProtocolFee moves amount of accrued fees in a token from the
// collector to the destination. Protocol-owner only.
func (e *Engine) WithdrawProtocolFee(ctx context.Context, caller common.Address, token common.Address, to common.Address, amount *uint256.Int) error {
	if err := e.requireRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return err
	}
	if to == zeroAddress {
		return ErrInvalidRecipient
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	accrued, err := e.store.AccruedFees(ctx, tokenKey(token))
	if err != nil {
		return err
	}
	if accrued == nil || amount.Gt(accrued) {
		return ErrExceedsAccruedFees
	}
	return e.payoutProtocolFee(ctx, token, to, types.CloneAmount(amount))
}

// WithdrawMaxProtocolFee drains the full accrued fee balance for a token
// to the destination. Protocol-owner only. An empty balance yields no
// transfer and no error.
func (e *Engine) WithdrawMaxProtocolFee(ctx context.Context, caller common.Address, token common.Address, to common.Address) (*uint256.Int, error) {
	if err := e.requireRole(ctx, access.RoleProtocolOwner, caller); err != nil {
		return nil, err
	}
	if to == zeroAddress {
		return nil, ErrInvalidRecipient
	}

	accrued, err := e.store.AccruedFees(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}
	if accrued == nil || accrued.IsZero() {
		return new(uint256.Int), nil
	}
	amount := types.CloneAmount(accrued)
	if err := e.payoutProtocolFee(ctx, token, to, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// payoutProtocolFee transfers accrued fees out of the collector's custody
// and deducts the liability.
func (e *Engine) payoutProtocolFee(ctx context.Context, token, to common.Address, amount *uint256.Int) error {
	cfg, err := e.feeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Collector == zeroAddress {
		return ErrNoFeeCollector
	}

	ok, err := e.tokens.TransferFrom(ctx, token, cfg.Collector, to, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTransferFailed
	}
	if err := e.store.DeductFees(ctx, tokenKey(token), amount); err != nil {
		return err
	}

	e.emit(event.KindProtocolFeeWithdrawn, nil, map[string]string{
		"token":  addrHex(token),
		"to":     addrHex(to),
		"amount": types.AmountString(amount),
	})
	e.plugins.EmitProtocolFeeWithdrawn(ctx, token, to, amount)

	e.logger.Info("protocol fees withdrawn",
		"token", addrHex(token),
		"to", addrHex(to),
		"amount", types.AmountString(amount),
	)
	return nil
}
