package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeInvalidPromoCode    = "INVALID_PROMO_CODE"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeGatewayUnavailable  = "GATEWAY_UNAVAILABLE"
	ErrCodePaymentDeclined     = "PAYMENT_DECLINED"
	ErrCodeCallbackRejected    = "CALLBACK_REJECTED"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeVerificationFailed  = "PAYMENT_VERIFICATION_FAILED"
	ErrCodeAlreadyReconciled   = "ALREADY_RECONCILED"
	ErrCodeStatusConflict      = "STATUS_CONFLICT"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidStateForCall = "INVALID_ORDER_STATE"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies with a different
// message still satisfy errors.Is against the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrValidation             = NewDomainError(ErrCodeValidation, "Request validation failed")
	ErrInvalidPromoCode       = NewDomainError(ErrCodeInvalidPromoCode, "Promo code is not valid for this cart")
	ErrProductNotFound        = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrInvalidQuantity        = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrGatewayUnavailable     = NewDomainError(ErrCodeGatewayUnavailable, "Payment gateway is unavailable")
	ErrPaymentDeclined        = NewDomainError(ErrCodePaymentDeclined, "Payment could not be started")
	ErrCallbackRejected       = NewDomainError(ErrCodeCallbackRejected, "Payment callback rejected")
	ErrOrderNotFound          = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrVerificationFailed     = NewDomainError(ErrCodeVerificationFailed, "Payment verification failed")
	ErrAlreadyReconciled      = NewDomainError(ErrCodeAlreadyReconciled, "Order already reconciled")
	ErrStatusConflict         = NewDomainError(ErrCodeStatusConflict, "Order status changed concurrently")
	ErrInsufficientStock      = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock")
	ErrInvalidStateForRequest = NewDomainError(ErrCodeInvalidStateForCall, "Order is not in a state that allows this operation")
)

// ValidationError returns a validation domain error carrying a specific message.
func ValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// Buyer-facing failure categories carried on the result redirect.
const (
	FailureCategoryPayment = "payment_failed"
	FailureCategorySystem  = "system_error"
	FailureCategoryInvalid = "invalid_request"
)

// FailureCategory maps an error to the coarse category shown to the buyer.
// Gateway messages and internal reasons never reach the buyer.
func FailureCategory(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPaymentDeclined), errors.Is(err, ErrVerificationFailed):
		return FailureCategoryPayment
	case errors.Is(err, ErrCallbackRejected), errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidPromoCode), errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInvalidQuantity):
		return FailureCategoryInvalid
	default:
		return FailureCategorySystem
	}
}
