package fee

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/xraph/streamledger/types"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		bps    uint16
		want   string
	}{
		// 2.5% of 10000 is 250.
		{"typical fee", "10000", 250, "250"},
		{"zero bps", "10000", 0, "0"},
		{"zero amount", "0", 250, "0"},
		{"full fee", "10000", 10000, "10000"},
		{"one bps", "10000", 1, "1"},
		{"truncates down", "999", 250, "24"},
		{"sub-denominator amount", "100", 1, "0"},
		{"large amount", "1000000000000000000000000", 30, "3000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := For(types.MustAmount(tt.amount), tt.bps)
			if types.AmountString(got) != tt.want {
				t.Errorf("got %s, want %s", types.AmountString(got), tt.want)
			}
		})
	}
}

func TestForNil(t *testing.T) {
	if !For(nil, 250).IsZero() {
		t.Error("nil amount should carry no fee")
	}
}

func TestForOverflowingAmount(t *testing.T) {
	// max uint256: amount * bps overflows, so the divide-first path runs.
	max := new(uint256.Int).Not(new(uint256.Int))
	got := For(max, 250)

	want := new(uint256.Int).Div(max, uint256.NewInt(BPSDenominator))
	want.Mul(want, uint256.NewInt(250))
	if !got.Eq(want) {
		t.Errorf("got %s, want %s", got.Dec(), want.Dec())
	}
	if got.Gt(max) {
		t.Error("fee exceeds the amount")
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		bps     uint16
		wantNet string
		wantFee string
	}{
		{"typical", "10000", 250, "9750", "250"},
		{"zero fee", "10000", 0, "10000", "0"},
		{"full fee", "500", 10000, "0", "500"},
		{"truncation favors net", "999", 250, "975", "24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := types.MustAmount(tt.amount)
			net, protocolFee := Split(amount, tt.bps)

			if types.AmountString(net) != tt.wantNet {
				t.Errorf("net: got %s, want %s", types.AmountString(net), tt.wantNet)
			}
			if types.AmountString(protocolFee) != tt.wantFee {
				t.Errorf("fee: got %s, want %s", types.AmountString(protocolFee), tt.wantFee)
			}

			// net + fee always reassembles the gross amount.
			sum := new(uint256.Int).Add(net, protocolFee)
			if !sum.Eq(amount) {
				t.Errorf("net + fee = %s, want %s", sum.Dec(), amount.Dec())
			}
		})
	}
}
