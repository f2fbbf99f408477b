package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestParseAmountRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"zero", "0", "0"},
		{"empty is zero", "", "0"},
		{"small", "42", "42"},
		{"token scale", "1000000000000000000", "1000000000000000000"},
		{"max uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			"115792089237316195423570985008687907853269984665640564039457584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAmount(tt.in)
			if err != nil {
				t.Fatalf("ParseAmount(%q): %v", tt.in, err)
			}
			if got := AmountString(a); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	tests := []string{
		"-1",
		"1.5",
		"abc",
		"0x10",
		// One above max uint256.
		"115792089237316195423570985008687907853269984665640564039457584007913129639936",
	}

	for _, in := range tests {
		if _, err := ParseAmount(in); err == nil {
			t.Errorf("ParseAmount(%q): expected error, got nil", in)
		}
	}
}

func TestAmountStringNil(t *testing.T) {
	if got := AmountString(nil); got != "0" {
		t.Errorf("got %q, want %q", got, "0")
	}
}

func TestCloneAmount(t *testing.T) {
	a := NewAmount(100)
	b := CloneAmount(a)
	b.Add(b, NewAmount(1))
	if !a.Eq(NewAmount(100)) {
		t.Error("clone mutated the original")
	}

	if !CloneAmount(nil).IsZero() {
		t.Error("cloning nil should yield zero")
	}
}

func TestFitsUint128(t *testing.T) {
	max128 := new(uint256.Int).Sub(
		new(uint256.Int).Lsh(NewAmount(1), 128),
		NewAmount(1),
	)
	over128 := new(uint256.Int).Lsh(NewAmount(1), 128)

	tests := []struct {
		name string
		in   *uint256.Int
		want bool
	}{
		{"nil", nil, false},
		{"zero", ZeroAmount(), true},
		{"small", NewAmount(42), true},
		{"max uint128", max128, true},
		{"2^128", over128, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitsUint128(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		in       *uint256.Int
		decimals uint8
		want     string
	}{
		{"nil", nil, 6, "0"},
		{"zero", ZeroAmount(), 6, "0"},
		{"usdc one and a half", NewAmount(1500000), 6, "1.5"},
		{"no decimals", NewAmount(123), 0, "123"},
		{"sub-unit", NewAmount(1), 6, "0.000001"},
		{"whole ether", MustAmount("2000000000000000000"), 18, "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUnits(tt.in, tt.decimals); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		decimals uint8
		want     string
	}{
		{"one and a half usdc", "1.5", 6, "1500000"},
		{"integer", "42", 6, "42000000"},
		{"exact precision", "0.000001", 6, "1"},
		{"zero", "0", 18, "0"},
		{"whitespace", " 2.25 ", 2, "225"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.decimals)
			if err != nil {
				t.Fatalf("ParseUnits(%q, %d): %v", tt.in, tt.decimals, err)
			}
			if AmountString(got) != tt.want {
				t.Errorf("got %q, want %q", AmountString(got), tt.want)
			}
		})
	}
}

func TestParseUnitsErrors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		decimals uint8
	}{
		{"too precise", "0.0000001", 6},
		{"negative", "-1", 6},
		{"not a number", "abc", 6},
		{"overflow", "116000000000000000000000000000000000000000000000000000000000000000000000000000", 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseUnits(tt.in, tt.decimals); err == nil {
				t.Errorf("ParseUnits(%q, %d): expected error, got nil", tt.in, tt.decimals)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	amounts := []string{"1", "1500000", "999999999999999999", "1000000000000000000"}
	for _, s := range amounts {
		a := MustAmount(s)
		formatted := FormatUnits(a, 6)
		back, err := ParseUnits(formatted, 6)
		if err != nil {
			t.Fatalf("ParseUnits(%q): %v", formatted, err)
		}
		if !back.Eq(a) {
			t.Errorf("round trip of %s via %q produced %s", s, formatted, AmountString(back))
		}
	}
}
