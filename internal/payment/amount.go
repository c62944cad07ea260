package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currencies the processor charges in whole units.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

func IsZeroDecimal(currency string) bool {
	_, ok := zeroDecimal[strings.ToLower(currency)]
	return ok
}

// MajorUnits converts a minor-unit amount to major units for display.
func MajorUnits(amount int64, currency string) float64 {
	if IsZeroDecimal(currency) {
		return float64(amount)
	}
	f, _ := decimal.New(amount, -2).Float64()
	return f
}
