package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest is the payload for starting a checkout.
type CheckoutRequest struct {
	Items           []CartItem `json:"items"`
	Customer        Customer   `json:"customer"`
	ShippingAddress Address    `json:"shippingAddress"`
	BillingAddress  Address    `json:"billingAddress"`
	Card            Card       `json:"card"`
	Installment     int        `json:"installment"`
	CouponCode      *string    `json:"couponCode,omitempty"`
}

// CartItem is a single cart line. Prices come from the catalogue, never from
// the client.
type CartItem struct {
	ProductID   string `json:"productId"`
	VariantName string `json:"variantName,omitempty"`
	Quantity    int    `json:"quantity"`
}

// Card holds the raw card fields forwarded to the gateway. It is never
// persisted and only its masked form may be logged.
type Card struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpireMonth string `json:"expireMonth"`
	ExpireYear  string `json:"expireYear"`
	CVC         string `json:"cvc"`
}

// Masked returns the card number with all but the first six and last four
// digits hidden.
func (c Card) Masked() string {
	n := strings.ReplaceAll(c.Number, " ", "")
	if len(n) < 10 {
		return strings.Repeat("*", len(n))
	}
	return n[:6] + strings.Repeat("*", len(n)-10) + n[len(n)-4:]
}

// String keeps card data out of formatted logs.
func (c Card) String() string {
	return c.Masked()
}

// CheckoutResponse is returned once the gateway accepted the 3DS initiation.
type CheckoutResponse struct {
	OrderID            uuid.UUID       `json:"orderId"`
	OrderNumber        string          `json:"orderNumber"`
	Total              decimal.Decimal `json:"total"`
	Currency           string          `json:"currency"`
	ThreeDSHTMLContent string          `json:"threeDSHtmlContent"`
}

// CallbackPayload carries the untrusted fields the gateway posts back.
type CallbackPayload struct {
	Status         string
	PaymentID      string
	ConversationID string
	MDStatus       string
}

// ReconcileResult reports how a callback or re-query settled.
type ReconcileResult struct {
	OrderNumber       string
	State             OrderState
	AlreadyReconciled bool
}

// Succeeded reports whether the order's payment stands. A duplicate callback
// for an order that has since shipped still counts as a success.
func (r *ReconcileResult) Succeeded() bool {
	return r != nil && r.State.PaymentStatus == PaymentStatusPaid
}
