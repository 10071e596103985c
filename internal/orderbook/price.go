package orderbook

import "github.com/shopspring/decimal"

// PriceScale is the number of price ticks per currency unit.
// All book ordering compares int64 ticks; decimals appear only at the
// parse/format boundary.
const PriceScale = 10000

// Price is a fixed-point price in ticks of 1/PriceScale.
type Price int64

// Quantity is an order or fill quantity.
type Quantity uint32

var scaleExp = int32(4) // 10^4 == PriceScale

// PriceFromDecimal converts a decimal price to ticks, truncating any
// precision beyond 1/PriceScale.
func PriceFromDecimal(d decimal.Decimal) Price {
	return Price(d.Shift(scaleExp).IntPart())
}

// PriceFromString parses a decimal string ("100.25") into ticks.
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return PriceFromDecimal(d), nil
}

// PriceFromFloat converts a float price to ticks. Intended for display-side
// inputs only; the book never stores floats.
func PriceFromFloat(f float64) Price {
	return PriceFromDecimal(decimal.NewFromFloat(f))
}

// Decimal returns the price as an exact decimal.
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -scaleExp)
}

// String formats the price with trailing zeros trimmed ("100.25").
func (p Price) String() string {
	return p.Decimal().String()
}

// Fixed2 formats the price with exactly two decimal places, the convention
// used by the trade log.
func (p Price) Fixed2() string {
	return p.Decimal().StringFixed(2)
}

// Float returns the price as a float64 for display and persistence.
func (p Price) Float() float64 {
	f, _ := p.Decimal().Float64()
	return f
}
