package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order views and operator actions.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// RequeryResponse reports the outcome of an operator re-query.
type RequeryResponse struct {
	OrderNumber       string              `json:"orderNumber"`
	Status            model.OrderStatus   `json:"status"`
	PaymentStatus     model.PaymentStatus `json:"paymentStatus"`
	AlreadyReconciled bool                `json:"alreadyReconciled"`
	FailureCategory   string              `json:"failureCategory,omitempty"`
}

// CancelRequest is the optional body of a cancel request.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Get handles GET /api/orders/{orderNumber} requests.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByOrderNumber(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Requery handles POST /api/orders/{orderNumber}/requery requests. A settled
// payment outcome, failed or not, is a 200; only lookup and gateway problems
// are errors.
func (h *OrderHandler) Requery(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Requery(r.Context(), r.PathValue("orderNumber"))
	if result == nil || errors.Is(err, model.ErrGatewayUnavailable) {
		if err == nil {
			err = model.ErrOrderNotFound
		}
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, RequeryResponse{
		OrderNumber:       result.OrderNumber,
		Status:            result.State.Status,
		PaymentStatus:     result.State.PaymentStatus,
		AlreadyReconciled: result.AlreadyReconciled,
		FailureCategory:   model.FailureCategory(err),
	})
}

// Cancel handles POST /api/orders/{orderNumber}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Cancel(r.Context(), r.PathValue("orderNumber"), req.Reason)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Ship handles POST /api/orders/{orderNumber}/ship requests.
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.MarkShipped(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Deliver handles POST /api/orders/{orderNumber}/deliver requests.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.MarkDelivered(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
