package service

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"storefront/internal/model"
)

// validateCheckoutRequest checks the cart, buyer, addresses and card.
func validateCheckoutRequest(req *model.CheckoutRequest) error {
	if req == nil {
		return model.ValidationError("checkout request is required")
	}

	if len(req.Items) == 0 {
		return model.ValidationError("cart must contain at least one item")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return model.ValidationError(fmt.Sprintf("item %d: product ID is required", i))
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}

	c := req.Customer
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return model.ValidationError("customer first and last name are required")
	}
	if !strings.Contains(c.Email, "@") {
		return model.ValidationError("customer email is invalid")
	}

	if err := validateAddress("shipping", req.ShippingAddress); err != nil {
		return err
	}
	if err := validateAddress("billing", req.BillingAddress); err != nil {
		return err
	}

	if err := validateCard(req.Card); err != nil {
		return err
	}

	if req.Installment < 0 || req.Installment > maxInstallment {
		return model.ValidationError(fmt.Sprintf("installment must be between 1 and %d", maxInstallment))
	}

	return nil
}

func validateAddress(kind string, a model.Address) error {
	if strings.TrimSpace(a.ContactName) == "" || strings.TrimSpace(a.Line1) == "" ||
		strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Country) == "" {
		return model.ValidationError(kind + " address requires contact name, line 1, city and country")
	}
	return nil
}

func validateCard(c model.Card) error {
	if strings.TrimSpace(c.HolderName) == "" {
		return model.ValidationError("card holder name is required")
	}

	number := strings.ReplaceAll(c.Number, " ", "")
	if len(number) < 12 || len(number) > 19 || !allDigits(number) {
		return model.ValidationError("card number is invalid")
	}

	month, err := strconv.Atoi(c.ExpireMonth)
	if err != nil || month < 1 || month > 12 {
		return model.ValidationError("card expiry month is invalid")
	}
	if (len(c.ExpireYear) != 2 && len(c.ExpireYear) != 4) || !allDigits(c.ExpireYear) {
		return model.ValidationError("card expiry year is invalid")
	}

	if len(c.CVC) < 3 || len(c.CVC) > 4 || !allDigits(c.CVC) {
		return model.ValidationError("card CVC is invalid")
	}

	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

const maxReasonLength = 500

// callbackToken reduces an untrusted callback field to at most n characters
// from [A-Za-z0-9_-]. Anything else is dropped.
func callbackToken(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= n {
			break
		}
		if r < 0x80 && (r == '-' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validCallbackToken reports whether s is non-empty, at most n characters and
// entirely from [A-Za-z0-9_-].
func validCallbackToken(s string, n int) bool {
	return s != "" && len(s) <= n && callbackToken(s, n) == s
}

// cleanReason makes a failure reason safe for TEXT and JSONB columns: invalid
// UTF-8 is replaced, control characters are dropped and the result is capped
// at maxReasonLength runes.
func cleanReason(s string) string {
	s = strings.ToValidUTF8(s, "?")
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count == maxReasonLength {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
