package pricing

import (
	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

// Config holds the storefront pricing constants. There is exactly one
// copy of these values; every screen and every server-side recompute
// goes through this package.
type Config struct {
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
}

// Quote is the derived money breakdown for a set of cart lines. It is
// never persisted as source of truth; recomputing from the same lines
// always yields the same quote.
type Quote struct {
	ItemsPrice    float64 `json:"items_price"`
	ShippingPrice float64 `json:"shipping_price"`
	TaxPrice      float64 `json:"tax_price"`
	TotalPrice    float64 `json:"total_price"`
}

// Compute prices a set of lines. Each line subtotal is rounded to cents
// (half away from zero) before summation so float drift can never reach
// a user-visible total.
func Compute(lines []domain.CartLine, cfg Config) Quote {
	subtotal := decimal.Zero
	for _, line := range lines {
		lineTotal := decimal.NewFromFloat(line.UnitPrice).
			Mul(decimal.NewFromInt(int64(line.Quantity))).
			Round(2)
		subtotal = subtotal.Add(lineTotal)
	}

	shipping := decimal.NewFromFloat(cfg.FlatShippingFee).Round(2)
	if subtotal.GreaterThanOrEqual(decimal.NewFromFloat(cfg.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(decimal.NewFromFloat(cfg.TaxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return Quote{
		ItemsPrice:    subtotal.InexactFloat64(),
		ShippingPrice: shipping.InexactFloat64(),
		TaxPrice:      tax.InexactFloat64(),
		TotalPrice:    total.InexactFloat64(),
	}
}

// Matches reports whether a client-submitted quote agrees with q within
// one cent on every component.
func (q Quote) Matches(other Quote) bool {
	return centsEqual(q.ItemsPrice, other.ItemsPrice) &&
		centsEqual(q.ShippingPrice, other.ShippingPrice) &&
		centsEqual(q.TaxPrice, other.TaxPrice) &&
		centsEqual(q.TotalPrice, other.TotalPrice)
}

func centsEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs().
		LessThanOrEqual(decimal.NewFromFloat(0.01))
}
