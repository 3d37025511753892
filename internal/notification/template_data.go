package notification

import (
	"storefront/internal/model"
)

// templateData is the substitution payload every template receives. Amounts
// are pre-formatted to two decimals.
type templateData struct {
	OrderNumber     string         `json:"orderNumber"`
	FirstName       string         `json:"firstName"`
	FullName        string         `json:"fullName"`
	Items           []templateItem `json:"items"`
	Subtotal        string         `json:"subtotal"`
	Shipping        string         `json:"shipping"`
	Tax             string         `json:"tax"`
	Discount        string         `json:"discount,omitempty"`
	Total           string         `json:"total"`
	Currency        string         `json:"currency"`
	Installment     int            `json:"installment,omitempty"`
	ShippingAddress *model.Address `json:"shippingAddress,omitempty"`
	Refunded        bool           `json:"refunded"`
}

type templateItem struct {
	Name     string `json:"name"`
	Variant  string `json:"variant,omitempty"`
	Quantity int    `json:"quantity"`
	Total    string `json:"total"`
}

func newTemplateData(s *model.OrderSnapshot) templateData {
	d := templateData{
		OrderNumber: s.OrderNumber,
		FirstName:   s.Customer.FirstName,
		FullName:    s.Customer.FullName(),
		Items:       make([]templateItem, 0, len(s.Items)),
	}

	for _, it := range s.Items {
		d.Items = append(d.Items, templateItem{
			Name:     it.ProductName,
			Variant:  it.VariantName,
			Quantity: it.Quantity,
			Total:    it.TotalPrice.StringFixed(2),
		})
	}

	if o := s.Order; o != nil {
		d.Subtotal = o.Subtotal.StringFixed(2)
		d.Shipping = o.ShippingCost.StringFixed(2)
		d.Tax = o.TaxAmount.StringFixed(2)
		d.Total = o.Total.StringFixed(2)
		d.Currency = o.Currency
		d.Refunded = o.PaymentStatus == model.PaymentStatusRefunded
		if o.DiscountAmount.IsPositive() {
			d.Discount = o.DiscountAmount.StringFixed(2)
		}
		if o.Installment > 1 {
			d.Installment = o.Installment
		}
		address := o.ShippingAddress
		d.ShippingAddress = &address
	}

	return d
}
