package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/delegation"
	"github.com/xraph/streamledger/event"
	"github.com/xraph/streamledger/fee"
	"github.com/xraph/streamledger/id"
	"github.com/xraph/streamledger/metrics"
	"github.com/xraph/streamledger/stream"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	usdc  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func testStream(sender common.Address) *stream.Stream {
	return &stream.Stream{
		Sender:          sender,
		Token:           usdc,
		TokenDecimals:   6,
		TotalAmount:     uint256.NewInt(1000),
		WithdrawnAmount: new(uint256.Int),
		RatePerSecond:   stream.Rate(uint256.NewInt(1000), 100),
		StartTime:       0,
		EndTime:         100,
		Cancelable:      true,
		Status:          stream.StatusActive,
	}
}

func TestCreateStreamSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	for want := uint64(0); want < 3; want++ {
		got, err := s.CreateStream(ctx, testStream(alice))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("stream id: got %d, want %d", got, want)
		}
	}
}

func TestGetStream(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.CreateStream(ctx, testStream(alice))
	if err != nil {
		t.Fatal(err)
	}

	st, err := s.GetStream(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if st.Sender != alice || !st.TotalAmount.Eq(uint256.NewInt(1000)) {
		t.Error("stored stream does not round-trip")
	}

	// Reads return copies.
	st.TotalAmount.Add(st.TotalAmount, uint256.NewInt(1))
	again, _ := s.GetStream(ctx, id)
	if !again.TotalAmount.Eq(uint256.NewInt(1000)) {
		t.Error("mutating a read leaked into the store")
	}

	if _, err := s.GetStream(ctx, 99); !errors.Is(err, streamledger.ErrUnexistingStream) {
		t.Errorf("missing stream: got %v, want ErrUnexistingStream", err)
	}
}

func TestUpdateStream(t *testing.T) {
	ctx := context.Background()
	s := New()

	streamID, _ := s.CreateStream(ctx, testStream(alice))
	st, _ := s.GetStream(ctx, streamID)
	st.Status = stream.StatusPaused

	if err := s.UpdateStream(ctx, st); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetStream(ctx, streamID)
	if got.Status != stream.StatusPaused {
		t.Errorf("status after update: got %s", got.Status)
	}

	phantom := testStream(alice)
	phantom.ID = 99
	if err := s.UpdateStream(ctx, phantom); !errors.Is(err, streamledger.ErrUnexistingStream) {
		t.Errorf("updating a missing stream: got %v, want ErrUnexistingStream", err)
	}
}

func TestListStreams(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateStream(ctx, testStream(alice)); err != nil {
			t.Fatal(err)
		}
	}
	bobID, _ := s.CreateStream(ctx, testStream(bob))
	st, _ := s.GetStream(ctx, bobID)
	st.Status = stream.StatusPaused
	if err := s.UpdateStream(ctx, st); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListStreams(ctx, stream.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 streams, got %d", len(all))
	}
	// Listing is ordered by id.
	for i, st := range all {
		if st.ID != uint64(i) {
			t.Errorf("position %d holds stream %d", i, st.ID)
		}
	}

	bySender, _ := s.ListStreams(ctx, stream.ListOpts{Sender: alice.Hex()})
	if len(bySender) != 3 {
		t.Errorf("sender filter: got %d, want 3", len(bySender))
	}

	byStatus, _ := s.ListStreams(ctx, stream.ListOpts{Status: stream.StatusPaused})
	if len(byStatus) != 1 || byStatus[0].ID != bobID {
		t.Errorf("status filter returned %d streams", len(byStatus))
	}

	paged, _ := s.ListStreams(ctx, stream.ListOpts{Limit: 2, Offset: 1})
	if len(paged) != 2 || paged[0].ID != 1 || paged[1].ID != 2 {
		t.Errorf("paging returned unexpected window")
	}

	beyond, _ := s.ListStreams(ctx, stream.ListOpts{Offset: 10})
	if len(beyond) != 0 {
		t.Errorf("offset past the end should be empty, got %d", len(beyond))
	}
}

func TestStreamMetrics(t *testing.T) {
	ctx := context.Background()
	s := New()

	m, err := s.GetStreamMetrics(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Error("absent metrics should be nil, nil")
	}

	put := stream.NewMetrics(0)
	put.WithdrawalCount = 2
	put.TotalWithdrawn = uint256.NewInt(500)
	if err := s.PutStreamMetrics(ctx, put); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetStreamMetrics(ctx, 0)
	if got.WithdrawalCount != 2 || !got.TotalWithdrawn.Eq(uint256.NewInt(500)) {
		t.Error("metrics do not round-trip")
	}
}

func TestDelegates(t *testing.T) {
	ctx := context.Background()
	s := New()

	d, err := s.GetDelegate(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d != (common.Address{}) {
		t.Error("default delegate should be the zero address")
	}

	if err := s.SetDelegate(ctx, 0, bob); err != nil {
		t.Fatal(err)
	}
	d, _ = s.GetDelegate(ctx, 0)
	if d != bob {
		t.Errorf("delegate: got %s, want %s", d.Hex(), bob.Hex())
	}

	// The zero address clears the delegation.
	if err := s.SetDelegate(ctx, 0, common.Address{}); err != nil {
		t.Fatal(err)
	}
	d, _ = s.GetDelegate(ctx, 0)
	if d != (common.Address{}) {
		t.Error("clearing the delegate did not take")
	}
}

func TestDelegationHistory(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := 0; i < 2; i++ {
		g := &delegation.Grant{
			ID:        id.NewGrantID(),
			StreamID:  0,
			Delegate:  bob,
			GrantedBy: alice,
			GrantedAt: time.Now().UTC(),
		}
		if err := s.AppendGrant(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	history, err := s.DelegationHistory(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(history))
	}

	other, _ := s.DelegationHistory(ctx, 1)
	if len(other) != 0 {
		t.Error("history leaks across streams")
	}
}

func TestProtocolMetrics(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, err := s.GetProtocolMetrics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.StreamsCreated != 0 {
		t.Error("fresh store should report zeroed protocol metrics")
	}

	if err := s.PutProtocolMetrics(ctx, &metrics.Protocol{StreamsCreated: 5, ActiveStreams: 3}); err != nil {
		t.Fatal(err)
	}
	p, _ = s.GetProtocolMetrics(ctx)
	if p.StreamsCreated != 5 || p.ActiveStreams != 3 {
		t.Error("protocol metrics do not round-trip")
	}
}

func TestDistributions(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.AddDistribution(ctx, "usdc", uint256.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDistribution(ctx, "usdc", uint256.NewInt(50)); err != nil {
		t.Fatal(err)
	}

	total, err := s.Distribution(ctx, "usdc")
	if err != nil {
		t.Fatal(err)
	}
	if !total.Eq(uint256.NewInt(150)) {
		t.Errorf("distribution total: got %s, want 150", total.Dec())
	}

	none, _ := s.Distribution(ctx, "dai")
	if !none.IsZero() {
		t.Error("unknown token should have a zero distribution")
	}
}

func TestFeeConfig(t *testing.T) {
	ctx := context.Background()
	s := New()

	cfg, err := s.GetFeeConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Error("unset fee config should be nil, nil")
	}

	if err := s.PutFeeConfig(ctx, &fee.Config{BPS: 250, Collector: bob}); err != nil {
		t.Fatal(err)
	}
	cfg, _ = s.GetFeeConfig(ctx)
	if cfg.BPS != 250 || cfg.Collector != bob {
		t.Error("fee config does not round-trip")
	}
}

func TestAccruedFees(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.AccrueFees(ctx, "usdc", uint256.NewInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeductFees(ctx, "usdc", uint256.NewInt(60)); err != nil {
		t.Fatal(err)
	}

	left, _ := s.AccruedFees(ctx, "usdc")
	if !left.Eq(uint256.NewInt(40)) {
		t.Errorf("accrued after deduct: got %s, want 40", left.Dec())
	}

	if err := s.DeductFees(ctx, "usdc", uint256.NewInt(41)); !errors.Is(err, streamledger.ErrExceedsAccruedFees) {
		t.Errorf("over-deduct: got %v, want ErrExceedsAccruedFees", err)
	}
	if err := s.DeductFees(ctx, "dai", uint256.NewInt(1)); !errors.Is(err, streamledger.ErrExceedsAccruedFees) {
		t.Errorf("deduct from empty token: got %v, want ErrExceedsAccruedFees", err)
	}
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	s := New()

	sid := uint64(0)
	other := uint64(1)
	batch := []*event.Event{
		{ID: id.NewEventID(), StreamID: &sid, Kind: event.KindStreamCreated, At: time.Now().UTC()},
		{ID: id.NewEventID(), StreamID: &sid, Kind: event.KindWithdrawal, At: time.Now().UTC()},
		{ID: id.NewEventID(), StreamID: &other, Kind: event.KindWithdrawal, At: time.Now().UTC()},
		{ID: id.NewEventID(), Kind: event.KindProtocolFeeUpdated, At: time.Now().UTC()},
	}
	if err := s.AppendEvents(ctx, batch); err != nil {
		t.Fatal(err)
	}

	evs, err := s.ListEvents(ctx, sid, event.QueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events for stream 0, got %d", len(evs))
	}
	if evs[0].Kind != event.KindStreamCreated {
		t.Error("events should come back in append order")
	}

	byKind, _ := s.ListEvents(ctx, sid, event.QueryOpts{Kind: event.KindWithdrawal})
	if len(byKind) != 1 {
		t.Errorf("kind filter: got %d, want 1", len(byKind))
	}
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Ping(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(ctx); !errors.Is(err, streamledger.ErrStoreClosed) {
		t.Errorf("ping after close: got %v, want ErrStoreClosed", err)
	}
	if _, err := s.CreateStream(ctx, testStream(alice)); !errors.Is(err, streamledger.ErrStoreClosed) {
		t.Errorf("create after close: got %v, want ErrStoreClosed", err)
	}
}
