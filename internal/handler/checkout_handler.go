package handler

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout initiation and the gateway's return leg.
type CheckoutHandler struct {
	service   service.CheckoutService
	resultURL string
	logger    zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler. resultURL is the
// buyer-facing page callbacks redirect to.
func NewCheckoutHandler(service service.CheckoutService, resultURL string, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		resultURL: resultURL,
		logger:    logger.With().Str("handler", "checkout").Logger(),
	}
}

// Initiate handles POST /api/checkout requests.
func (h *CheckoutHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if req.Customer.IP == "" {
		req.Customer.IP = clientIP(r)
	}

	resp, err := h.service.Initiate(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Callback handles the gateway's return redirect. The gateway may use GET or
// a form POST; both are read through r.Form. The buyer always lands on the
// result page, never on an error body.
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.Warn().Err(err).Str("method", r.Method).Msg("unreadable callback")
		h.redirect(w, r, nil, model.ErrCallbackRejected)
		return
	}

	payload := model.CallbackPayload{
		Status:         r.Form.Get("status"),
		PaymentID:      r.Form.Get("paymentId"),
		ConversationID: r.Form.Get("conversationId"),
		MDStatus:       r.Form.Get("mdStatus"),
	}

	result, err := h.service.Reconcile(r.Context(), payload)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Str("method", r.Method).
			Str("conversation_id", payload.ConversationID).
			Msg("callback did not confirm payment")
	}

	h.redirect(w, r, result, err)
}

func (h *CheckoutHandler) redirect(w http.ResponseWriter, r *http.Request, result *model.ReconcileResult, err error) {
	http.Redirect(w, r, resultLocation(h.resultURL, result, err), http.StatusSeeOther)
}

// resultLocation builds the result page URL carrying only the order number,
// the outcome and a coarse failure category.
func resultLocation(base string, result *model.ReconcileResult, err error) string {
	u, parseErr := url.Parse(base)
	if parseErr != nil {
		u = &url.URL{Path: "/"}
	}

	q := u.Query()
	if result != nil && result.OrderNumber != "" {
		q.Set("order", result.OrderNumber)
	}

	if result.Succeeded() {
		q.Set("status", "success")
	} else {
		q.Set("status", "failed")
		reason := model.FailureCategory(err)
		if reason == "" {
			// A duplicate callback for an order that already failed.
			reason = model.FailureCategoryPayment
		}
		q.Set("reason", reason)
	}

	u.RawQuery = q.Encode()
	return u.String()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
