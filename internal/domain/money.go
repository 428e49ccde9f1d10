package domain

import "github.com/shopspring/decimal"

var centsPerUnit = decimal.NewFromInt(100)

// AmountToCents converts a human-facing decimal amount into integer minor
// units. Amounts with more than two decimal places are rejected rather than
// rounded, because a silent rounding here would diverge from what the shipper
// approved. maxCents of zero disables the ceiling check.
func AmountToCents(amount float64, maxCents int64) (int64, error) {
	d := decimal.NewFromFloat(amount)
	if d.LessThanOrEqual(decimal.Zero) {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(centsPerUnit)
	if !cents.IsInteger() {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if maxCents > 0 && v > maxCents {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// CentsToAmount is the inverse conversion for human-facing edges only.
// Everything crossing the processor boundary stays in minor units.
func CentsToAmount(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(centsPerUnit).InexactFloat64()
}

// SplitPlatformFee computes the marketplace fee split, rounding the fee to the
// nearest minor unit. The carrier share absorbs the rounding so that
// fee + carrier always equals the captured amount exactly.
func SplitPlatformFee(amountCents int64, feeRate decimal.Decimal) (feeCents, carrierCents int64) {
	feeCents = decimal.NewFromInt(amountCents).Mul(feeRate).Round(0).IntPart()
	carrierCents = amountCents - feeCents
	return feeCents, carrierCents
}
