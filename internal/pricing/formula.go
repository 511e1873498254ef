package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Formula turns an offer and an exchange rate into a whole-unit price:
// floor(offer * rate * margin / divisor).
type Formula struct {
	Margin  decimal.Decimal
	Divisor decimal.Decimal
}

// NewFormula parses margin and divisor from their decimal string form.
func NewFormula(margin, divisor string) (Formula, error) {
	m, err := decimal.NewFromString(margin)
	if err != nil {
		return Formula{}, fmt.Errorf("invalid margin %q: %w", margin, err)
	}
	if !m.IsPositive() {
		return Formula{}, fmt.Errorf("margin must be positive, got %s", margin)
	}

	d, err := decimal.NewFromString(divisor)
	if err != nil {
		return Formula{}, fmt.Errorf("invalid divisor %q: %w", divisor, err)
	}
	if !d.IsPositive() {
		return Formula{}, fmt.Errorf("divisor must be positive, got %s", divisor)
	}

	return Formula{Margin: m, Divisor: d}, nil
}

// Apply computes the price. Both inputs must be positive; the result is
// truncated, which for positive products equals the floor.
func (f Formula) Apply(offer, rate float64) (int64, error) {
	if offer <= 0 || rate <= 0 {
		return 0, fmt.Errorf("offer and rate must be positive, got %v and %v", offer, rate)
	}
	if !f.Divisor.IsPositive() {
		return 0, fmt.Errorf("divisor must be positive, got %s", f.Divisor)
	}

	product := decimal.NewFromFloat(offer).
		Mul(decimal.NewFromFloat(rate)).
		Mul(f.Margin)

	quotient, _ := product.QuoRem(f.Divisor, 0)
	return quotient.IntPart(), nil
}

func (f Formula) String() string {
	return fmt.Sprintf("floor(offer * rate * %s / %s)", f.Margin, f.Divisor)
}
