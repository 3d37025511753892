package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies; a checkout payload is a few KB.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; nothing useful left to tell the client.
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	requestID := middleware.RequestIDFromContext(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", code).Str("request_id", requestID).Int("status", status).Msg(message)

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: requestID,
	})
}

// writeDomainError maps err onto an HTTP status. Domain errors keep their
// code and message; anything else is reported as an internal error without
// leaking its text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}
	writeError(w, r, statusFor(domainErr), domainErr.Code, domainErr.Message, logger)
}

func statusFor(err *model.DomainError) int {
	switch err.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidJSON, model.ErrCodeInvalidPromoCode,
		model.ErrCodeProductNotFound, model.ErrCodeInvalidQuantity, model.ErrCodeCallbackRejected:
		return http.StatusBadRequest
	case model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidStateForCall, model.ErrCodeStatusConflict,
		model.ErrCodeAlreadyReconciled, model.ErrCodeInsufficientStock:
		return http.StatusConflict
	case model.ErrCodePaymentDeclined, model.ErrCodeVerificationFailed:
		return http.StatusPaymentRequired
	case model.ErrCodeGatewayUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
