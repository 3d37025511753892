package service

import (
	"storefront/internal/model"

	"github.com/shopspring/decimal"
)

// PricingPolicy holds the store's shipping and tax rules.
type PricingPolicy struct {
	Currency              string
	FreeShippingThreshold decimal.Decimal
	ShippingCost          decimal.Decimal
	TaxRate               decimal.Decimal
}

// Totals are the monetary fields of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal sums the line totals.
func Subtotal(items []model.OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}

// ShippingFor returns the shipping charge for a pre-discount subtotal.
func (p PricingPolicy) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(p.FreeShippingThreshold) {
		return p.ShippingCost
	}
	return decimal.Zero
}

// Price computes the order totals. The discount is capped at the subtotal, so
// Total = Subtotal + Shipping + Tax - Discount is never negative.
func (p PricingPolicy) Price(subtotal, discount decimal.Decimal) Totals {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	shipping := p.ShippingFor(subtotal)
	tax := subtotal.Mul(p.TaxRate).Round(2)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    subtotal.Add(shipping).Add(tax).Sub(discount),
	}
}
