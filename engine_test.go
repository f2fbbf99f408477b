package streamledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/access"
	"github.com/xraph/streamledger/certificate"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/store/memory"
	"github.com/xraph/streamledger/stream"
	"github.com/xraph/streamledger/token"
)

var (
	sender    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	recipient = common.HexToAddress("0x2000000000000000000000000000000000000002")
	delegate  = common.HexToAddress("0x3000000000000000000000000000000000000003")
	collector = common.HexToAddress("0x4000000000000000000000000000000000000004")
	owner     = common.HexToAddress("0x5000000000000000000000000000000000000005")
	outsider  = common.HexToAddress("0x6000000000000000000000000000000000000006")
	spender   = common.HexToAddress("0x7000000000000000000000000000000000000007")
	usdc      = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// clock is a manually advanced time source; sec is the current unix second.
type clock struct {
	sec uint64
}

func (c *clock) now() time.Time { return time.Unix(int64(c.sec), 0) }

type fixture struct {
	engine *streamledger.Engine
	store  *memory.Store
	tokens *token.Memory
	certs  *certificate.Memory
	roles  *access.Memory
	clock  *clock
}

func newFixture(t *testing.T, opts ...streamledger.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.New(),
		tokens: token.NewMemory(),
		certs:  certificate.NewMemory(),
		roles:  access.NewMemory(),
		clock:  &clock{},
	}
	f.tokens.Register(usdc, 6)

	opts = append([]streamledger.Option{
		streamledger.WithSpender(spender),
		streamledger.WithClock(f.clock.now),
	}, opts...)
	f.engine = streamledger.New(f.store, f.tokens, f.certs, f.roles, opts...)
	return f
}

// fund mints a balance to the sender and approves the engine's spender for
// the same amount.
func (f *fixture) fund(amount uint64) {
	f.tokens.Mint(usdc, sender, uint256.NewInt(amount))
	f.tokens.Approve(usdc, sender, spender, uint256.NewInt(amount))
}

// createStream opens a cancelable 1000-unit stream over [0, 100].
func (f *fixture) createStream(t *testing.T) uint64 {
	t.Helper()
	id, err := f.engine.CreateStream(context.Background(), streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(1000),
		StartTime:   0,
		EndTime:     100,
		Cancelable:  true,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, addr common.Address) *uint256.Int {
	t.Helper()
	b, err := f.tokens.BalanceOf(context.Background(), usdc, addr)
	require.NoError(t, err)
	return b
}

func TestCreateStreamValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	highPrecision := common.HexToAddress("0x9000000000000000000000000000000000000009")
	f.tokens.Register(highPrecision, 19)

	valid := streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(1000),
		StartTime:   0,
		EndTime:     100,
	}

	tests := []struct {
		name    string
		mutate  func(*streamledger.CreateStreamParams)
		wantErr error
	}{
		{"zero recipient", func(p *streamledger.CreateStreamParams) { p.Recipient = common.Address{} }, streamledger.ErrInvalidRecipient},
		{"zero token", func(p *streamledger.CreateStreamParams) { p.Token = common.Address{} }, streamledger.ErrInvalidToken},
		{"nil amount", func(p *streamledger.CreateStreamParams) { p.TotalAmount = nil }, streamledger.ErrZeroAmount},
		{"zero amount", func(p *streamledger.CreateStreamParams) { p.TotalAmount = new(uint256.Int) }, streamledger.ErrZeroAmount},
		{"end before start", func(p *streamledger.CreateStreamParams) { p.StartTime = 100; p.EndTime = 50 }, streamledger.ErrEndBeforeStart},
		{"zero duration", func(p *streamledger.CreateStreamParams) { p.StartTime = 100; p.EndTime = 100 }, streamledger.ErrTooShortDuration},
		{"too many decimals", func(p *streamledger.CreateStreamParams) { p.Token = highPrecision }, streamledger.ErrDecimalsTooHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := f.engine.CreateStream(ctx, p)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, streamledger.IsValidationError(err))
		})
	}
}

func TestCreateStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id := f.createStream(t)
	assert.Equal(t, uint64(0), id)

	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusActive, s.Status)
	assert.Equal(t, uint8(6), s.TokenDecimals)
	// 1000 units over 100 seconds is 10 units/second in 1e18 fixed point.
	want, err := uint256.FromDecimal("10000000000000000000")
	require.NoError(t, err)
	assert.True(t, s.RatePerSecond.Eq(want), "rate = %s", s.RatePerSecond.Dec())

	certOwner, err := f.certs.OwnerOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, recipient, certOwner)

	isAdmin, err := f.roles.HasRole(ctx, access.RoleStreamAdmin, sender)
	require.NoError(t, err)
	assert.True(t, isAdmin, "sender gets the stream-admin role at creation")

	pm, err := f.engine.ProtocolMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pm.StreamsCreated)
	assert.Equal(t, uint64(1), pm.ActiveStreams)

	next := f.createStream(t)
	assert.Equal(t, uint64(1), next, "ids are dense and sequential")
}

func TestGetStreamMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetStream(context.Background(), 42)
	require.ErrorIs(t, err, streamledger.ErrUnexistingStream)
	assert.True(t, streamledger.IsNotFound(err))
}

func TestAccountingViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.clock.sec = 50

	withdrawable, err := f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.Eq(uint256.NewInt(500)), "halfway through, half is withdrawable")

	debt, err := f.engine.TotalDebt(ctx, id)
	require.NoError(t, err)
	assert.True(t, debt.Eq(uint256.NewInt(500)))

	refundable, err := f.engine.RefundableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, refundable.Eq(uint256.NewInt(500)))

	// The sender holds 200, so only 200 of the 500 debt is covered.
	f.tokens.Mint(usdc, sender, uint256.NewInt(200))
	covered, err := f.engine.CoveredDebt(ctx, id)
	require.NoError(t, err)
	assert.True(t, covered.Eq(uint256.NewInt(200)))
	uncovered, err := f.engine.UncoveredDebt(ctx, id)
	require.NoError(t, err)
	assert.True(t, uncovered.Eq(uint256.NewInt(300)))

	// 200 of balance against 500 owed: already past depletion.
	depletion, err := f.engine.DepletionTime(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), depletion)

	active, err := f.engine.IsStreamActive(ctx, id)
	require.NoError(t, err)
	assert.True(t, active)

	decimals, err := f.engine.TokenDecimals(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.fund(1000)
	f.clock.sec = 50

	res, err := f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(500))
	require.NoError(t, err)
	assert.True(t, res.Net.Eq(uint256.NewInt(500)), "no fee configured, full amount is paid out")
	assert.True(t, res.Fee.IsZero())
	assert.True(t, f.balance(t, recipient).Eq(uint256.NewInt(500)))
	assert.True(t, f.balance(t, sender).Eq(uint256.NewInt(500)))

	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.WithdrawnAmount.Eq(uint256.NewInt(500)))

	sm, err := f.engine.StreamMetrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sm.WithdrawalCount)
	assert.True(t, sm.TotalWithdrawn.Eq(uint256.NewInt(500)))

	dist, err := f.engine.TokenDistribution(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, dist.Eq(uint256.NewInt(500)))

	// Nothing withdrawable remains at this instant.
	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(1))
	require.ErrorIs(t, err, streamledger.ErrExceedsWithdrawable)
}

func TestWithdrawRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.clock.sec = 50

	_, err := f.engine.Withdraw(ctx, outsider, id, outsider, uint256.NewInt(100))
	require.ErrorIs(t, err, streamledger.ErrWrongRecipientOrDelegate)
	assert.True(t, streamledger.IsAuthorizationError(err))

	_, err = f.engine.Withdraw(ctx, recipient, id, common.Address{}, uint256.NewInt(100))
	require.ErrorIs(t, err, streamledger.ErrInvalidRecipient)

	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, new(uint256.Int))
	require.ErrorIs(t, err, streamledger.ErrZeroAmount)

	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(600))
	require.ErrorIs(t, err, streamledger.ErrExceedsWithdrawable)

	// Funded but with no allowance granted to the engine's spender.
	f.tokens.Mint(usdc, sender, uint256.NewInt(1000))
	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(100))
	require.ErrorIs(t, err, streamledger.ErrInsufficientAllowance)
}

func TestWithdrawCollectsProtocolFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.PutFeeConfig(ctx, &fee.Config{BPS: 250, Collector: collector}))

	id, err := f.engine.CreateStream(ctx, streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(10000),
		StartTime:   0,
		EndTime:     100,
	})
	require.NoError(t, err)
	f.fund(10000)
	f.clock.sec = 100

	res, err := f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(10000))
	require.NoError(t, err)
	assert.True(t, res.Net.Eq(uint256.NewInt(9750)), "net = %s", res.Net.Dec())
	assert.True(t, res.Fee.Eq(uint256.NewInt(250)), "fee = %s", res.Fee.Dec())
	assert.True(t, f.balance(t, recipient).Eq(uint256.NewInt(9750)))
	assert.True(t, f.balance(t, collector).Eq(uint256.NewInt(250)))

	accrued, err := f.engine.AccruedProtocolFees(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, accrued.Eq(uint256.NewInt(250)))

	// Distribution tracks the gross amount, fee included.
	dist, err := f.engine.TokenDistribution(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, dist.Eq(uint256.NewInt(10000)))
}

func TestWithdrawWithoutCollector(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.PutFeeConfig(ctx, &fee.Config{BPS: 250}))

	id := f.createStream(t)
	f.fund(1000)
	f.clock.sec = 50

	_, err := f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(500))
	require.ErrorIs(t, err, streamledger.ErrNoFeeCollector)
}

func TestWithdrawRequiresBalanceForBothLegs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.PutFeeConfig(ctx, &fee.Config{BPS: 250, Collector: collector}))

	id, err := f.engine.CreateStream(ctx, streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(10000),
		StartTime:   0,
		EndTime:     100,
	})
	require.NoError(t, err)

	// 9800 covers the 9750 net leg but not the 250 fee leg on top.
	f.tokens.Mint(usdc, sender, uint256.NewInt(9800))
	f.tokens.Approve(usdc, sender, spender, uint256.NewInt(10000))
	f.clock.sec = 100

	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(10000))
	require.ErrorIs(t, err, streamledger.ErrTransferFailed)

	// The rejection leaves every balance and the stream untouched.
	assert.True(t, f.balance(t, recipient).IsZero())
	assert.True(t, f.balance(t, collector).IsZero())
	assert.True(t, f.balance(t, sender).Eq(uint256.NewInt(9800)))

	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.WithdrawnAmount.IsZero())
}

func TestWithdrawMax(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.clock.sec = 50

	// The sender's 300 balance caps the 500 withdrawable at 300.
	f.tokens.Mint(usdc, sender, uint256.NewInt(300))
	f.tokens.Approve(usdc, sender, spender, uint256.NewInt(300))

	res, err := f.engine.WithdrawMax(ctx, recipient, id, recipient)
	require.NoError(t, err)
	assert.True(t, res.Net.Eq(uint256.NewInt(300)))
	assert.True(t, f.balance(t, sender).IsZero())

	// Nothing left collectable: zero result, not an error.
	res, err = f.engine.WithdrawMax(ctx, recipient, id, recipient)
	require.NoError(t, err)
	assert.True(t, res.Net.IsZero())
	assert.True(t, res.Fee.IsZero())
}

func TestPauseAndRestart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)

	f.clock.sec = 40
	require.ErrorIs(t, f.engine.PauseStream(ctx, outsider, id), streamledger.ErrWrongSender)
	require.NoError(t, f.engine.PauseStream(ctx, sender, id))

	// Accrual froze at 400 even as time passes.
	f.clock.sec = 90
	withdrawable, err := f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.Eq(uint256.NewInt(400)))

	require.ErrorIs(t, f.engine.PauseStream(ctx, sender, id), streamledger.ErrInvalidTransition)

	require.NoError(t, f.engine.RestartStream(ctx, sender, id, nil))
	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), s.StartTime, "schedule shifts by the 50 paused seconds")
	assert.Equal(t, uint64(150), s.EndTime)

	// Release picks up where the pause froze it.
	withdrawable, err = f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.Eq(uint256.NewInt(400)))

	f.clock.sec = 100
	withdrawable, err = f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.Eq(uint256.NewInt(500)))
}

func TestRestartReplacesRate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)

	f.clock.sec = 40
	require.NoError(t, f.engine.PauseStream(ctx, sender, id))

	newRate, err := uint256.FromDecimal("20000000000000000000")
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.RestartStream(ctx, sender, id, new(uint256.Int)), streamledger.ErrZeroRate)

	require.NoError(t, f.engine.RestartStream(ctx, sender, id, newRate))
	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.RatePerSecond.Eq(newRate), "restart stamps the new rate")
	assert.Equal(t, stream.StatusActive, s.Status)
}

func TestCancelStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.clock.sec = 50

	require.ErrorIs(t, f.engine.CancelStream(ctx, outsider, id), streamledger.ErrUnauthorized)

	require.NoError(t, f.engine.CancelStream(ctx, sender, id))
	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusCanceled, s.Status)
	assert.Equal(t, uint64(50), s.EndTime, "the schedule is cut at the cancel instant")

	// Debt accrued before cancellation stays withdrawable.
	f.clock.sec = 80
	withdrawable, err := f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.Eq(uint256.NewInt(500)))

	require.ErrorIs(t, f.engine.CancelStream(ctx, sender, id), streamledger.ErrInvalidTransition)
	require.ErrorIs(t, f.engine.RestartStream(ctx, sender, id, nil), streamledger.ErrInvalidTransition)

	count, err := f.engine.ActiveStreamsCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestCancelNonCancelable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.engine.CreateStream(ctx, streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(1000),
		StartTime:   0,
		EndTime:     100,
		Cancelable:  false,
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.CancelStream(ctx, sender, id), streamledger.ErrNotCancelable)
}

func TestVoidStream(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.clock.sec = 50

	require.ErrorIs(t, f.engine.VoidStream(ctx, outsider, id), streamledger.ErrUnauthorized)

	// The certificate holder writes off everything unwithdrawn.
	require.NoError(t, f.engine.VoidStream(ctx, recipient, id))
	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusVoided, s.Status)

	withdrawable, err := f.engine.WithdrawableAmount(ctx, id)
	require.NoError(t, err)
	assert.True(t, withdrawable.IsZero(), "voiding forgives the outstanding debt")

	require.ErrorIs(t, f.engine.VoidStream(ctx, recipient, id), streamledger.ErrInvalidTransition)
}

func TestVoidPausedStreamBySender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)

	f.clock.sec = 30
	require.NoError(t, f.engine.PauseStream(ctx, sender, id))
	require.NoError(t, f.engine.VoidStream(ctx, sender, id))

	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, stream.StatusVoided, s.Status)
}

func TestDelegation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.fund(1000)

	require.ErrorIs(t, f.engine.DelegateStream(ctx, outsider, id, delegate), streamledger.ErrWrongRecipientOrDelegate)
	require.ErrorIs(t, f.engine.DelegateStream(ctx, recipient, id, common.Address{}), streamledger.ErrInvalidDelegate)

	require.NoError(t, f.engine.DelegateStream(ctx, recipient, id, delegate))
	current, err := f.engine.StreamDelegate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, delegate, current)

	// The delegate may withdraw on the holder's behalf.
	f.clock.sec = 50
	res, err := f.engine.Withdraw(ctx, delegate, id, delegate, uint256.NewInt(100))
	require.NoError(t, err)
	assert.True(t, res.Net.Eq(uint256.NewInt(100)))

	// A delegate cannot re-delegate.
	require.ErrorIs(t, f.engine.DelegateStream(ctx, delegate, id, outsider), streamledger.ErrWrongRecipientOrDelegate)

	// Granting again replaces the delegate; history keeps both grants.
	require.NoError(t, f.engine.DelegateStream(ctx, recipient, id, outsider))
	history, err := f.engine.DelegationHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, delegate, history[0].Delegate)
	assert.Equal(t, outsider, history[1].Delegate)
	assert.Equal(t, recipient, history[0].GrantedBy)

	// Grant timestamps come from the engine clock.
	assert.True(t, history[0].GrantedAt.Equal(time.Unix(0, 0)))
	assert.True(t, history[1].GrantedAt.Equal(time.Unix(50, 0)))

	require.NoError(t, f.engine.RevokeDelegation(ctx, recipient, id))
	current, err = f.engine.StreamDelegate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, current)

	require.ErrorIs(t, f.engine.RevokeDelegation(ctx, recipient, id), streamledger.ErrNoDelegate)

	// Revocation leaves the history untouched.
	history, err = f.engine.DelegationHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestApprovedAgentCanWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)
	f.fund(1000)
	f.clock.sec = 50

	agent := common.HexToAddress("0x8000000000000000000000000000000000000008")
	require.NoError(t, f.certs.Approve(ctx, id, agent))

	res, err := f.engine.Withdraw(ctx, agent, id, recipient, uint256.NewInt(100))
	require.NoError(t, err)
	assert.True(t, res.Net.Eq(uint256.NewInt(100)))

	// Withdrawal rights do not extend to delegation management; that
	// stays with the certificate owner.
	require.ErrorIs(t, f.engine.DelegateStream(ctx, agent, id, delegate), streamledger.ErrWrongRecipientOrDelegate)

	require.NoError(t, f.engine.DelegateStream(ctx, recipient, id, delegate))
	require.ErrorIs(t, f.engine.RevokeDelegation(ctx, agent, id), streamledger.ErrWrongRecipientOrDelegate)
}

func TestUpdateStreamRate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.createStream(t)

	newRate, err := uint256.FromDecimal("20000000000000000000")
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.UpdateStreamRate(ctx, outsider, id, newRate), streamledger.ErrWrongSender)
	require.ErrorIs(t, f.engine.UpdateStreamRate(ctx, sender, id, new(uint256.Int)), streamledger.ErrZeroRate)

	require.NoError(t, f.engine.UpdateStreamRate(ctx, sender, id, newRate))
	s, err := f.engine.GetStream(ctx, id)
	require.NoError(t, err)
	assert.True(t, s.RatePerSecond.Eq(newRate))

	require.NoError(t, f.engine.PauseStream(ctx, sender, id))
	require.ErrorIs(t, f.engine.UpdateStreamRate(ctx, sender, id, newRate), streamledger.ErrInvalidTransition)
}

func TestProtocolFeeGovernance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.roles.GrantRole(ctx, access.RoleProtocolOwner, owner))

	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, outsider, 100), streamledger.ErrUnauthorized)
	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, owner, 10001), streamledger.ErrFeeTooHigh)
	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, owner, 0), streamledger.ErrZeroFee)

	require.NoError(t, f.engine.UpdateProtocolFee(ctx, owner, 250))
	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, owner, 250), streamledger.ErrFeeUnchanged)

	// Fees cannot be switched off through an update, even from a live value.
	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, owner, 0), streamledger.ErrZeroFee)
	bps, err := f.engine.ProtocolFee(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(250), bps)

	require.ErrorIs(t, f.engine.UpdateFeeCollector(ctx, owner, common.Address{}), streamledger.ErrInvalidFeeCollector)
	require.NoError(t, f.engine.UpdateFeeCollector(ctx, owner, collector))
	require.ErrorIs(t, f.engine.UpdateFeeCollector(ctx, owner, collector), streamledger.ErrSameFeeCollector)

	got, err := f.engine.FeeCollector(ctx)
	require.NoError(t, err)
	assert.Equal(t, collector, got)
}

func TestProtocolOwnerRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.roles.GrantRole(ctx, access.RoleProtocolOwner, owner))

	newOwner := common.HexToAddress("0x9900000000000000000000000000000000000099")
	require.ErrorIs(t, f.engine.UpdateProtocolOwner(ctx, owner, common.Address{}), streamledger.ErrInvalidOwner)
	require.NoError(t, f.engine.UpdateProtocolOwner(ctx, owner, newOwner))

	// The old owner loses the role as part of the hand-off.
	require.ErrorIs(t, f.engine.UpdateProtocolFee(ctx, owner, 100), streamledger.ErrUnauthorized)
	require.NoError(t, f.engine.UpdateProtocolFee(ctx, newOwner, 100))
}

func TestWithdrawProtocolFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.roles.GrantRole(ctx, access.RoleProtocolOwner, owner))
	require.NoError(t, f.store.PutFeeConfig(ctx, &fee.Config{BPS: 250, Collector: collector}))

	id, err := f.engine.CreateStream(ctx, streamledger.CreateStreamParams{
		Sender:      sender,
		Recipient:   recipient,
		Token:       usdc,
		TotalAmount: uint256.NewInt(10000),
		StartTime:   0,
		EndTime:     100,
	})
	require.NoError(t, err)
	f.fund(10000)
	f.clock.sec = 100

	_, err = f.engine.Withdraw(ctx, recipient, id, recipient, uint256.NewInt(10000))
	require.NoError(t, err)

	treasury := common.HexToAddress("0xAA000000000000000000000000000000000000AA")

	require.ErrorIs(t, f.engine.WithdrawProtocolFee(ctx, outsider, usdc, treasury, uint256.NewInt(100)), streamledger.ErrUnauthorized)
	require.ErrorIs(t, f.engine.WithdrawProtocolFee(ctx, owner, usdc, treasury, uint256.NewInt(300)), streamledger.ErrExceedsAccruedFees)

	require.NoError(t, f.engine.WithdrawProtocolFee(ctx, owner, usdc, treasury, uint256.NewInt(100)))
	assert.True(t, f.balance(t, treasury).Eq(uint256.NewInt(100)))

	drained, err := f.engine.WithdrawMaxProtocolFee(ctx, owner, usdc, treasury)
	require.NoError(t, err)
	assert.True(t, drained.Eq(uint256.NewInt(150)))
	assert.True(t, f.balance(t, treasury).Eq(uint256.NewInt(250)))

	accrued, err := f.engine.AccruedProtocolFees(ctx, usdc)
	require.NoError(t, err)
	assert.True(t, accrued.IsZero())

	// Draining an empty balance is a no-op.
	drained, err = f.engine.WithdrawMaxProtocolFee(ctx, owner, usdc, treasury)
	require.NoError(t, err)
	assert.True(t, drained.IsZero())
}

func TestProtocolMetricsCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(1000)

	first := f.createStream(t)
	second := f.createStream(t)
	f.clock.sec = 50

	_, err := f.engine.Withdraw(ctx, recipient, first, recipient, uint256.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, f.engine.DelegateStream(ctx, recipient, first, delegate))
	require.NoError(t, f.engine.CancelStream(ctx, sender, second))

	pm, err := f.engine.ProtocolMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), pm.StreamsCreated)
	assert.Equal(t, uint64(1), pm.ActiveStreams)
	assert.Equal(t, uint64(1), pm.Withdrawals)
	assert.Equal(t, uint64(1), pm.Delegations)
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createStream(t)
	f.createStream(t)

	streams, err := f.engine.ListStreams(ctx, stream.ListOpts{Sender: sender.Hex()})
	require.NoError(t, err)
	assert.Len(t, streams, 2)

	streams, err = f.engine.ListStreams(ctx, stream.ListOpts{Status: stream.StatusPaused})
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestEventLogFlush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, streamledger.WithEventConfig(1, 10*time.Millisecond))

	require.NoError(t, f.engine.Start(ctx))
	id := f.createStream(t)

	var events []*event.Event
	require.Eventually(t, func() bool {
		var err error
		events, err = f.engine.StreamEvents(ctx, id, event.QueryOpts{Kind: event.KindStreamCreated})
		return err == nil && len(events) == 1
	}, 2*time.Second, 10*time.Millisecond, "created event reaches the store")

	assert.Equal(t, string(event.KindStreamCreated), string(events[0].Kind))
	assert.Equal(t, "1000", events[0].Payload["total_amount"])

	require.NoError(t, f.engine.Stop())
}

func TestStartSeedsFeeConfig(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, streamledger.WithFeeConfig(100, collector))

	require.NoError(t, f.engine.Start(ctx))
	defer func() { require.NoError(t, f.engine.Stop()) }()

	bps, err := f.engine.ProtocolFee(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), bps)

	got, err := f.engine.FeeCollector(ctx)
	require.NoError(t, err)
	assert.Equal(t, collector, got)
}
