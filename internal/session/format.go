package session

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Placeholder renders wherever a value has not been fetched yet. It is never
// a number: zero is a valid amount and must not be confused with "unknown".
const Placeholder = "—"

// priceScale is the fixed-point scale of AMM prices (1e18 == 1.0).
const priceScale = 18

// FormatCountdown renders remaining seconds as zero-padded HH:MM:SS, clamping
// negatives to "00:00:00".
func FormatCountdown(remaining int64) string {
	if remaining < 0 {
		remaining = 0
	}
	hh := remaining / 3600
	mm := (remaining % 3600) / 60
	ss := remaining % 60
	return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)
}

// FormatPrice renders a 1e18-scaled price with exactly 4 fractional digits,
// truncating (not rounding) anything beyond that precision.
func FormatPrice(p *big.Int) string {
	if p == nil {
		return Placeholder
	}
	return decimal.NewFromBigInt(p, -priceScale).Truncate(4).StringFixed(4)
}

// FormatShares renders a share balance, or the placeholder when unknown.
func FormatShares(v *big.Int, ok bool) string {
	if !ok || v == nil {
		return Placeholder
	}
	return v.String()
}
