package stream

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/types"
)

func testStream(total uint64, start, end uint64) *Stream {
	amount := uint256.NewInt(total)
	return &Stream{
		Sender:          common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Token:           common.HexToAddress("0x2222222222222222222222222222222222222222"),
		TotalAmount:     amount,
		WithdrawnAmount: new(uint256.Int),
		RatePerSecond:   Rate(amount, end-start),
		StartTime:       start,
		EndTime:         end,
		Status:          StatusActive,
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		duration uint64
		want     string
	}{
		// 1000 over 100s streams at 10/s, carried at 1e18 fixed point.
		{"even division", "1000", 100, "10000000000000000000"},
		{"one second", "500", 1, "500000000000000000000"},
		{"slow stream", "1", 1000000, "1000000000000"},
		{"zero total", "0", 100, "0"},
		{"zero duration", "1000", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rate(types.MustAmount(tt.total), tt.duration)
			if types.AmountString(got) != tt.want {
				t.Errorf("got %s, want %s", types.AmountString(got), tt.want)
			}
		})
	}
}

func TestStreamedAmount(t *testing.T) {
	s := testStream(1000, 100, 200)

	tests := []struct {
		name string
		now  uint64
		want uint64
	}{
		{"before start", 50, 0},
		{"at start", 100, 0},
		{"halfway", 150, 500},
		{"at end", 200, 1000},
		{"after end", 500, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.StreamedAmount(tt.now)
			if !got.Eq(uint256.NewInt(tt.want)) {
				t.Errorf("StreamedAmount(%d): got %s, want %d", tt.now, got.Dec(), tt.want)
			}
		})
	}
}

func TestStreamedAmountNeverExceedsTotal(t *testing.T) {
	// 1000 over 3 seconds truncates to 333/s of fixed-point rate remainder;
	// the clamp keeps the release at or below the commitment.
	s := testStream(1000, 0, 3)
	for now := uint64(0); now <= 10; now++ {
		got := s.StreamedAmount(now)
		if got.Gt(s.TotalAmount) {
			t.Fatalf("StreamedAmount(%d) = %s exceeds total", now, got.Dec())
		}
	}
	if !s.StreamedAmount(3).Eq(uint256.NewInt(999)) {
		t.Errorf("expected truncated release of 999 at end, got %s", s.StreamedAmount(3).Dec())
	}
}

func TestStreamedAmountPausedFreezesClock(t *testing.T) {
	s := testStream(1000, 0, 100)
	s.Status = StatusPaused
	s.LastUpdateTime = 40

	if got := s.StreamedAmount(90); !got.Eq(uint256.NewInt(400)) {
		t.Errorf("paused stream should stay at 400, got %s", got.Dec())
	}
	// A paused clock never runs backwards past the freeze point.
	if got := s.StreamedAmount(10); !got.Eq(uint256.NewInt(100)) {
		t.Errorf("query before freeze point: got %s, want 100", got.Dec())
	}
}

func TestWithdrawableAmount(t *testing.T) {
	s := testStream(1000, 0, 100)
	s.WithdrawnAmount = uint256.NewInt(300)

	tests := []struct {
		name string
		now  uint64
		want uint64
	}{
		{"nothing left early", 30, 0},
		{"halfway", 50, 200},
		{"at end", 100, 700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.WithdrawableAmount(tt.now)
			if !got.Eq(uint256.NewInt(tt.want)) {
				t.Errorf("WithdrawableAmount(%d): got %s, want %d", tt.now, got.Dec(), tt.want)
			}
		})
	}
}

func TestCoveredAndUncoveredDebt(t *testing.T) {
	s := testStream(1000, 0, 100)

	// At t=50 the debt is 500.
	tests := []struct {
		name          string
		balance       uint64
		wantCovered   uint64
		wantUncovered uint64
	}{
		{"fully covered", 800, 500, 0},
		{"exactly covered", 500, 500, 0},
		{"partially covered", 200, 200, 300},
		{"no balance", 0, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balance := uint256.NewInt(tt.balance)
			if got := s.CoveredDebt(50, balance); !got.Eq(uint256.NewInt(tt.wantCovered)) {
				t.Errorf("CoveredDebt: got %s, want %d", got.Dec(), tt.wantCovered)
			}
			if got := s.UncoveredDebt(50, balance); !got.Eq(uint256.NewInt(tt.wantUncovered)) {
				t.Errorf("UncoveredDebt: got %s, want %d", got.Dec(), tt.wantUncovered)
			}
		})
	}
}

func TestRefundableAmount(t *testing.T) {
	s := testStream(1000, 0, 100)

	tests := []struct {
		now  uint64
		want uint64
	}{
		{0, 1000},
		{25, 750},
		{100, 0},
		{200, 0},
	}

	for _, tt := range tests {
		got := s.RefundableAmount(tt.now)
		if !got.Eq(uint256.NewInt(tt.want)) {
			t.Errorf("RefundableAmount(%d): got %s, want %d", tt.now, got.Dec(), tt.want)
		}
	}
}

func TestDepletionTime(t *testing.T) {
	s := testStream(1000, 0, 100)

	tests := []struct {
		name    string
		now     uint64
		balance uint64
		want    uint64
	}{
		{"plenty of balance", 0, 2000, 100},
		{"exact balance", 0, 1000, 100},
		{"runs out halfway", 0, 500, 50},
		{"already depleted", 50, 100, 50},
		{"no balance", 20, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.DepletionTime(tt.now, uint256.NewInt(tt.balance))
			if got != tt.want {
				t.Errorf("DepletionTime(%d, %d): got %d, want %d", tt.now, tt.balance, got, tt.want)
			}
		})
	}
}

func TestNonexistentStreamAccounting(t *testing.T) {
	var s Stream
	if !s.StreamedAmount(100).IsZero() {
		t.Error("nonexistent stream should stream nothing")
	}
	if s.DepletionTime(100, uint256.NewInt(1000)) != 0 {
		t.Error("nonexistent stream should have zero depletion time")
	}
}
