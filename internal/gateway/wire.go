package gateway

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type initializeBody struct {
	Locale          string           `json:"locale"`
	ConversationID  string           `json:"conversationId"`
	Price           string           `json:"price"`
	PaidPrice       string           `json:"paidPrice"`
	Currency        string           `json:"currency"`
	Installment     int              `json:"installment"`
	BasketID        string           `json:"basketId"`
	PaymentChannel  string           `json:"paymentChannel"`
	PaymentGroup    string           `json:"paymentGroup"`
	CallbackURL     string           `json:"callbackUrl"`
	PaymentCard     paymentCardBody  `json:"paymentCard"`
	Buyer           buyerBody        `json:"buyer"`
	ShippingAddress addressBody      `json:"shippingAddress"`
	BillingAddress  addressBody      `json:"billingAddress"`
	BasketItems     []basketItemBody `json:"basketItems"`
}

type paymentCardBody struct {
	CardHolderName string `json:"cardHolderName"`
	CardNumber     string `json:"cardNumber"`
	ExpireMonth    string `json:"expireMonth"`
	ExpireYear     string `json:"expireYear"`
	CVC            string `json:"cvc"`
	RegisterCard   int    `json:"registerCard"`
}

type buyerBody struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	GSMNumber           string `json:"gsmNumber,omitempty"`
	Email               string `json:"email"`
	IdentityNumber      string `json:"identityNumber"`
	RegistrationAddress string `json:"registrationAddress"`
	IP                  string `json:"ip"`
	City                string `json:"city"`
	Country             string `json:"country"`
}

type addressBody struct {
	ContactName string `json:"contactName"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Address     string `json:"address"`
	ZipCode     string `json:"zipCode,omitempty"`
}

type basketItemBody struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category1 string `json:"category1"`
	ItemType  string `json:"itemType"`
	Price     string `json:"price"`
}

type completeBody struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	PaymentID      string `json:"paymentId"`
}

type retrieveBody struct {
	Locale                string `json:"locale"`
	ConversationID        string `json:"conversationId,omitempty"`
	PaymentID             string `json:"paymentId,omitempty"`
	PaymentConversationID string `json:"paymentConversationId,omitempty"`
}

type cancelBody struct {
	Locale         string `json:"locale"`
	ConversationID string `json:"conversationId"`
	PaymentID      string `json:"paymentId"`
}

type refundBody struct {
	Locale               string `json:"locale"`
	ConversationID       string `json:"conversationId"`
	PaymentTransactionID string `json:"paymentTransactionId"`
	Price                string `json:"price"`
	Currency             string `json:"currency"`
}

// baseResponse is the envelope every gateway response shares.
type baseResponse struct {
	Status         string `json:"status"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
	ConversationID string `json:"conversationId"`
}

func (r baseResponse) failure() Failure {
	return Failure{Code: r.ErrorCode, Message: r.ErrorMessage}
}

type initializeResponse struct {
	baseResponse
	PaymentID          string `json:"paymentId"`
	ThreeDSHTMLContent string `json:"threeDSHtmlContent"`
}

type itemTransaction struct {
	ItemID               string     `json:"itemId"`
	PaymentTransactionID string     `json:"paymentTransactionId"`
	PaidPrice            flexNumber `json:"paidPrice"`
}

type paymentResponse struct {
	baseResponse
	PaymentID        string            `json:"paymentId"`
	BasketID         string            `json:"basketId"`
	PaymentStatus    string            `json:"paymentStatus"`
	Price            flexNumber        `json:"price"`
	PaidPrice        flexNumber        `json:"paidPrice"`
	Currency         string            `json:"currency"`
	Installment      int               `json:"installment"`
	MDStatus         flexString        `json:"mdStatus"`
	ItemTransactions []itemTransaction `json:"itemTransactions"`
}

func (r paymentResponse) result() (PaymentResult, error) {
	if r.Status != StatusSuccess {
		return r.failure(), nil
	}

	txs := make([]ItemTransaction, 0, len(r.ItemTransactions))
	for _, it := range r.ItemTransactions {
		txs = append(txs, ItemTransaction{
			ItemID:        it.ItemID,
			TransactionID: it.PaymentTransactionID,
			PaidPrice:     decimal.Decimal(it.PaidPrice),
		})
	}

	return Payment{
		PaymentID:      r.PaymentID,
		ConversationID: r.ConversationID,
		BasketID:       r.BasketID,
		PaymentStatus:  r.PaymentStatus,
		Price:          decimal.Decimal(r.Price),
		PaidPrice:      decimal.Decimal(r.PaidPrice),
		Currency:       r.Currency,
		Installment:    r.Installment,
		MDStatus:       string(r.MDStatus),
		Transactions:   txs,
	}, nil
}

type reversalResponse struct {
	baseResponse
	PaymentID string     `json:"paymentId"`
	Price     flexNumber `json:"price"`
	Currency  string     `json:"currency"`
}

func (r reversalResponse) result() (ReversalResult, error) {
	if r.Status != StatusSuccess {
		return r.failure(), nil
	}
	return Reversal{
		PaymentID: r.PaymentID,
		Price:     decimal.Decimal(r.Price),
		Currency:  r.Currency,
	}, nil
}

// flexNumber accepts amounts sent either as JSON numbers or as strings.
type flexNumber decimal.Decimal

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*n = flexNumber(decimal.Zero)
		return nil
	}
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	if s == "" {
		*n = flexNumber(decimal.Zero)
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*n = flexNumber(d)
	return nil
}

// flexString accepts codes sent either as JSON numbers or as strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*f = ""
		return nil
	}
	if uq, err := strconv.Unquote(s); err == nil {
		s = uq
	}
	*f = flexString(s)
	return nil
}

func toInitializeBody(req *InitializeRequest) initializeBody {
	items := make([]basketItemBody, 0, len(req.BasketItems))
	for _, it := range req.BasketItems {
		items = append(items, basketItemBody{
			ID:        it.ID,
			Name:      it.Name,
			Category1: it.Category,
			ItemType:  it.ItemType,
			Price:     it.Price.StringFixed(2),
		})
	}

	return initializeBody{
		Locale:         "en",
		ConversationID: req.ConversationID,
		Price:          req.Price.StringFixed(2),
		PaidPrice:      req.PaidPrice.StringFixed(2),
		Currency:       req.Currency,
		Installment:    req.Installment,
		BasketID:       req.BasketID,
		PaymentChannel: "WEB",
		PaymentGroup:   "PRODUCT",
		CallbackURL:    req.CallbackURL,
		PaymentCard: paymentCardBody{
			CardHolderName: req.Card.HolderName,
			CardNumber:     req.Card.Number,
			ExpireMonth:    req.Card.ExpireMonth,
			ExpireYear:     req.Card.ExpireYear,
			CVC:            req.Card.CVC,
		},
		Buyer: buyerBody{
			ID:                  req.Buyer.ID,
			Name:                req.Buyer.Name,
			Surname:             req.Buyer.Surname,
			GSMNumber:           req.Buyer.Phone,
			Email:               req.Buyer.Email,
			IdentityNumber:      req.Buyer.IdentityNumber,
			RegistrationAddress: req.Buyer.Address,
			IP:                  req.Buyer.IP,
			City:                req.Buyer.City,
			Country:             req.Buyer.Country,
		},
		ShippingAddress: toAddressBody(req.ShippingAddress),
		BillingAddress:  toAddressBody(req.BillingAddress),
		BasketItems:     items,
	}
}

func toAddressBody(a Address) addressBody {
	return addressBody{
		ContactName: a.ContactName,
		City:        a.City,
		Country:     a.Country,
		Address:     a.Address,
		ZipCode:     a.ZipCode,
	}
}
