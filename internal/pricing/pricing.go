// Package pricing turns a list of order lines into monetary totals. It is
// pure: no storage, no clock, no error conditions.
package pricing

import "github.com/shopspring/decimal"

// Item is one order line as seen by the calculator.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the monetary breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Config carries the pricing constants. The free-shipping threshold is a
// strict bound: shipping is free only when subtotal exceeds it.
type Config struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultConfig returns the storefront defaults: 8% tax, free shipping
// over 75.00, flat 9.99 fee otherwise.
func DefaultConfig() Config {
	return Config{
		TaxRate:               decimal.NewFromFloat(0.08),
		FreeShippingThreshold: decimal.NewFromInt(75),
		ShippingFee:           decimal.NewFromFloat(9.99),
	}
}

// Calculate computes subtotal, tax, shipping and total for the given lines,
// rounding at the cent (half away from zero). An empty item list yields
// all-zero totals; callers reject empty orders before invoking this.
func Calculate(items []Item, cfg Config) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(cfg.TaxRate).Round(2)

	shipping := decimal.Zero
	if len(items) > 0 && !subtotal.GreaterThan(cfg.FreeShippingThreshold) {
		shipping = cfg.ShippingFee.Round(2)
	}

	discount := decimal.Zero

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount).Round(2),
	}
}

// LineTotal returns the rounded extended price of a single line.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
