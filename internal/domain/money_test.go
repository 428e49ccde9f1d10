package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountToCents(t *testing.T) {
	cases := []struct {
		amount   float64
		maxCents int64
		want     int64
		wantErr  bool
	}{
		{1000.00, 0, 100000, false},
		{950.50, 0, 95050, false},
		{0.01, 0, 1, false},
		{0, 0, 0, true},
		{-5, 0, 0, true},
		{10.001, 0, 0, true},
		{19.999, 0, 0, true},
		{2000.00, 100000, 0, true},
	}
	for _, tc := range cases {
		got, err := AmountToCents(tc.amount, tc.maxCents)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("AmountToCents(%v, %d): got err %v, want ErrInvalidAmount", tc.amount, tc.maxCents, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("AmountToCents(%v, %d): %v", tc.amount, tc.maxCents, err)
			continue
		}
		if got != tc.want {
			t.Errorf("AmountToCents(%v, %d) = %d, want %d", tc.amount, tc.maxCents, got, tc.want)
		}
	}
}

func TestCentsToAmount(t *testing.T) {
	if got := CentsToAmount(95050); got != 950.50 {
		t.Fatalf("CentsToAmount(95050) = %v", got)
	}
}

func TestSplitPlatformFee(t *testing.T) {
	rate := decimal.NewFromFloat(0.03)

	fee, carrier := SplitPlatformFee(100000, rate)
	if fee != 3000 || carrier != 97000 {
		t.Fatalf("split 100000: fee=%d carrier=%d", fee, carrier)
	}

	// 150 * 0.03 = 4.5, rounds to 5; carrier absorbs the rounding.
	fee, carrier = SplitPlatformFee(150, rate)
	if fee != 5 || carrier != 145 {
		t.Fatalf("split 150: fee=%d carrier=%d", fee, carrier)
	}
}

func TestSplitPlatformFeeSumsExactly(t *testing.T) {
	rate := decimal.NewFromFloat(0.03)
	for _, amount := range []int64{1, 33, 150, 9999, 10001, 95050, 100000, 99999999} {
		fee, carrier := SplitPlatformFee(amount, rate)
		if fee+carrier != amount {
			t.Errorf("split %d: fee %d + carrier %d != amount", amount, fee, carrier)
		}
		if fee < 0 || carrier < 0 {
			t.Errorf("split %d: negative share fee=%d carrier=%d", amount, fee, carrier)
		}
	}
}
