package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderState pairs the two status columns. Status transitions are expressed
// as a move from one OrderState to another.
type OrderState struct {
	Status        OrderStatus
	PaymentStatus PaymentStatus
}

var (
	StatePending   = OrderState{Status: OrderStatusPending, PaymentStatus: PaymentStatusPending}
	StatePaid      = OrderState{Status: OrderStatusConfirmed, PaymentStatus: PaymentStatusPaid}
	StateFailed    = OrderState{Status: OrderStatusCancelled, PaymentStatus: PaymentStatusFailed}
	StateCancelled = OrderState{Status: OrderStatusCancelled, PaymentStatus: PaymentStatusRefunded}
	StateShipped   = OrderState{Status: OrderStatusShipped, PaymentStatus: PaymentStatusPaid}
	StateDelivered = OrderState{Status: OrderStatusDelivered, PaymentStatus: PaymentStatusPaid}
)

func (s OrderState) String() string {
	return string(s.Status) + "/" + string(s.PaymentStatus)
}

// Address is an immutable snapshot of a postal address taken at checkout.
type Address struct {
	ContactName string `json:"contactName"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	Country     string `json:"country"`
}

// Customer is the buyer snapshot recorded on the order.
type Customer struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	// IdentityNumber is the national identity number some card networks require.
	IdentityNumber string `json:"identityNumber,omitempty"`
	IP             string `json:"ip,omitempty"`
}

// FullName returns the buyer's display name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Order represents a customer order.
type Order struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrderNumber    string    `json:"orderNumber" db:"order_number"`
	ConversationID string    `json:"-" db:"conversation_id"`

	Customer        Customer `json:"customer" db:"customer"`
	ShippingAddress Address  `json:"shippingAddress" db:"shipping_address"`
	BillingAddress  Address  `json:"billingAddress" db:"billing_address"`

	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	TaxAmount      decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`
	Currency       string          `json:"currency" db:"currency"`
	CouponCode     *string         `json:"couponCode,omitempty" db:"coupon_code"`

	Status        OrderStatus   `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus" db:"payment_status"`
	FailureReason *string       `json:"-" db:"failure_reason"`

	PaymentID           *string              `json:"paymentId,omitempty" db:"payment_id"`
	PaymentTransactions []PaymentTransaction `json:"-" db:"payment_transactions"`
	Installment         int                  `json:"installment" db:"installment"`
	PaidAt              *time.Time           `json:"paidAt,omitempty" db:"paid_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// State returns the order's current status pair.
func (o *Order) State() OrderState {
	return OrderState{Status: o.Status, PaymentStatus: o.PaymentStatus}
}

// IsPending reports whether the order still awaits its payment outcome.
func (o *Order) IsPending() bool {
	return o.State() == StatePending
}

// TotalsBalanced checks total == subtotal + shipping + tax - discount and total >= 0.
func (o *Order) TotalsBalanced() bool {
	expected := o.Subtotal.Add(o.ShippingCost).Add(o.TaxAmount).Sub(o.DiscountAmount)
	return o.Total.Equal(expected) && !o.Total.IsNegative()
}

// OrderItem is a line item snapshot taken at purchase time. It does not
// follow later catalogue changes.
type OrderItem struct {
	ID          uuid.UUID       `json:"-" db:"id"`
	OrderID     uuid.UUID       `json:"-" db:"order_id"`
	ProductID   *string         `json:"productId,omitempty" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	VariantName string          `json:"variantName,omitempty" db:"variant_name"`
	SKU         string          `json:"sku,omitempty" db:"sku"`
	Category    string          `json:"category,omitempty" db:"category"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice" db:"unit_price"`
	TotalPrice  decimal.Decimal `json:"totalPrice" db:"total_price"`
}

// PaymentTransaction is the captured amount of one basket line. The gateway
// refunds per line, so each is kept with its own amount.
type PaymentTransaction struct {
	ItemID        string          `json:"itemId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Refunded      bool            `json:"refunded,omitempty"`
}

// PaymentDetails are the gateway references stored when a payment is confirmed.
type PaymentDetails struct {
	PaymentID    string
	Transactions []PaymentTransaction
	Installment  int
	PaidAt       time.Time
}

// StatusChange describes the target of a conditional status update.
type StatusChange struct {
	To            OrderState
	FailureReason *string
	Payment       *PaymentDetails
}

// OrderResponse is the API view of an order with its items.
type OrderResponse struct {
	Order *Order      `json:"order"`
	Items []OrderItem `json:"items"`
}
