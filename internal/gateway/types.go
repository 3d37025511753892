// Package gateway is the adapter for the card payment gateway's 3-D Secure API.
//
// Responses are returned as tagged results: a call either yields the typed
// success value or a Failure carrying the gateway's own error code and message.
// Transport problems and non-2xx responses are reported as ErrUnavailable.
package gateway

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the gateway could not be reached or did not
// answer with a 2xx response.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Gateway status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	// PaymentStatusSuccess is the authoritative paymentStatus of a captured payment.
	PaymentStatusSuccess = "SUCCESS"

	// MDStatusAuthenticated is the issuer's "fully authenticated" 3DS result.
	MDStatusAuthenticated = "1"
)

// Basket item types.
const (
	ItemTypePhysical = "PHYSICAL"
	ItemTypeVirtual  = "VIRTUAL"
)

// InitializeRequest starts a 3-D Secure payment.
type InitializeRequest struct {
	ConversationID  string
	Price           decimal.Decimal // sum of basket item prices
	PaidPrice       decimal.Decimal // amount charged after discounts
	Currency        string
	Installment     int
	BasketID        string
	CallbackURL     string
	Card            Card
	Buyer           Buyer
	ShippingAddress Address
	BillingAddress  Address
	BasketItems     []BasketItem
}

// Card holds the card fields sent to the gateway.
type Card struct {
	HolderName  string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVC         string
}

// Buyer identifies the card holder to the gateway's fraud checks.
type Buyer struct {
	ID             string
	Name           string
	Surname        string
	Email          string
	Phone          string
	IdentityNumber string
	IP             string
	City           string
	Country        string
	Address        string
}

// Address is a postal address in the gateway's format.
type Address struct {
	ContactName string
	City        string
	Country     string
	Address     string
	ZipCode     string
}

// BasketItem is one priced line sent for authorisation.
type BasketItem struct {
	ID       string
	Name     string
	Category string
	ItemType string
	Price    decimal.Decimal
}

// RetrieveRequest looks a payment up by its gateway ID or, failing that, by
// the conversation ID it was initiated with.
type RetrieveRequest struct {
	PaymentID      string
	ConversationID string
}

// InitResult is either a Challenge or a Failure.
type InitResult interface {
	isInitResult()
}

// PaymentResult is either a Payment or a Failure.
type PaymentResult interface {
	isPaymentResult()
}

// ReversalResult is either a Reversal or a Failure.
type ReversalResult interface {
	isReversalResult()
}

// Challenge is a successfully initiated 3DS session.
type Challenge struct {
	PaymentID      string
	ConversationID string
	// HTMLContent is the decoded issuer page the buyer must be shown.
	HTMLContent string
}

// Payment describes a completed or retrieved payment.
type Payment struct {
	PaymentID      string
	ConversationID string
	BasketID       string
	PaymentStatus  string
	Price          decimal.Decimal
	PaidPrice      decimal.Decimal
	Currency       string
	Installment    int
	MDStatus       string
	// Transactions has one entry per basket line, in basket order.
	Transactions []ItemTransaction
}

// ItemTransaction is the captured part of one basket line. Refunds are made
// against it and cannot exceed its PaidPrice.
type ItemTransaction struct {
	ItemID        string
	TransactionID string
	PaidPrice     decimal.Decimal
}

// Reversal is a successful cancel or refund.
type Reversal struct {
	PaymentID string
	Price     decimal.Decimal
	Currency  string
}

// Failure is the gateway's own rejection, returned untranslated.
type Failure struct {
	Code    string
	Message string
}

func (Challenge) isInitResult()    {}
func (Payment) isPaymentResult()   {}
func (Reversal) isReversalResult() {}
func (Failure) isInitResult()      {}
func (Failure) isPaymentResult()   {}
func (Failure) isReversalResult()  {}
