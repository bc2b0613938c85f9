package pricing

import (
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"2.4", "2400000000000000000"},
		{"0.01", "10000000000000000"},
		{".5", "500000000000000000"},
		{"0.000000000000000001", "1"},
		{"1.000000000000000000999", "1000000000000000000"}, // extra digits truncate
		{"10.10", "10100000000000000000"},
		{" 3 ", "3000000000000000000"},
	}

	for _, tc := range cases {
		got, err := ParseAmount(tc.in, TokenDecimals)
		if err != nil {
			t.Fatalf("ParseAmount(%q): %v", tc.in, err)
		}
		want, _ := new(big.Int).SetString(tc.want, 10)
		if got.Cmp(want) != 0 {
			t.Fatalf("ParseAmount(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestParseAmountRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "-1", "1.2.3", "abc", "1,5", "1e18", "."} {
		if _, err := ParseAmount(in, TokenDecimals); err == nil {
			t.Fatalf("ParseAmount(%q): expected error", in)
		}
	}
}

func TestParseAmountZeroDecimals(t *testing.T) {
	got, err := ParseAmount("42.9", 0)
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("got %s, want 42", got)
	}
}
