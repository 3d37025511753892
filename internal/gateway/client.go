package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// API paths.
const (
	PathInitialize3DS = "/payment/3dsecure/initialize"
	PathComplete3DS   = "/payment/3dsecure/auth"
	PathRetrieve      = "/payment/detail"
	PathCancel        = "/payment/cancel"
	PathRefund        = "/payment/refund"
)

const maxResponseBytes = 1 << 20

// Client is the set of gateway operations checkout depends on.
type Client interface {
	// Initialize3DS starts a 3DS payment and returns the issuer challenge.
	Initialize3DS(ctx context.Context, req *InitializeRequest) (InitResult, error)

	// Complete3DS finalises an authenticated 3DS payment.
	Complete3DS(ctx context.Context, paymentID, conversationID string) (PaymentResult, error)

	// RetrievePayment reads the gateway's authoritative view of a payment.
	RetrievePayment(ctx context.Context, req RetrieveRequest) (PaymentResult, error)

	// Cancel voids a payment on the day it was taken.
	Cancel(ctx context.Context, paymentID, conversationID string) (ReversalResult, error)

	// Refund returns amount of an item transaction to the card.
	Refund(ctx context.Context, paymentTransactionID string, amount decimal.Decimal, currency, conversationID string) (ReversalResult, error)
}

type httpClient struct {
	baseURL string
	signer  *signer
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a gateway client. The HTTP client's timeout bounds every call.
func NewClient(cfg config.GatewayConfig, logger zerolog.Logger) Client {
	return newHTTPClient(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

func newHTTPClient(cfg config.GatewayConfig, hc *http.Client, logger zerolog.Logger) *httpClient {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		signer:  newSigner(cfg.APIKey, cfg.SecretKey),
		http:    hc,
		logger:  logger.With().Str("component", "gateway").Logger(),
	}
}

// Initialize3DS starts a 3DS payment.
func (c *httpClient) Initialize3DS(ctx context.Context, req *InitializeRequest) (InitResult, error) {
	var resp initializeResponse
	if err := c.post(ctx, PathInitialize3DS, toInitializeBody(req), &resp); err != nil {
		return nil, err
	}

	if resp.Status != StatusSuccess {
		return resp.failure(), nil
	}

	html, err := base64.StdEncoding.DecodeString(resp.ThreeDSHTMLContent)
	if err != nil {
		c.logger.Error().Err(err).Str("conversation_id", req.ConversationID).Msg("undecodable 3DS content")
		return nil, fmt.Errorf("%w: undecodable 3DS content", ErrUnavailable)
	}

	return Challenge{
		PaymentID:      resp.PaymentID,
		ConversationID: resp.ConversationID,
		HTMLContent:    string(html),
	}, nil
}

// Complete3DS finalises an authenticated payment.
func (c *httpClient) Complete3DS(ctx context.Context, paymentID, conversationID string) (PaymentResult, error) {
	body := completeBody{
		Locale:         "en",
		ConversationID: conversationID,
		PaymentID:      paymentID,
	}

	var resp paymentResponse
	if err := c.post(ctx, PathComplete3DS, body, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// RetrievePayment reads a payment by ID or conversation ID.
func (c *httpClient) RetrievePayment(ctx context.Context, req RetrieveRequest) (PaymentResult, error) {
	body := retrieveBody{
		Locale:                "en",
		ConversationID:        req.ConversationID,
		PaymentID:             req.PaymentID,
		PaymentConversationID: req.ConversationID,
	}

	var resp paymentResponse
	if err := c.post(ctx, PathRetrieve, body, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// Cancel voids a payment.
func (c *httpClient) Cancel(ctx context.Context, paymentID, conversationID string) (ReversalResult, error) {
	body := cancelBody{
		Locale:         "en",
		ConversationID: conversationID,
		PaymentID:      paymentID,
	}

	var resp reversalResponse
	if err := c.post(ctx, PathCancel, body, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// Refund returns part or all of an item transaction.
func (c *httpClient) Refund(ctx context.Context, paymentTransactionID string, amount decimal.Decimal, currency, conversationID string) (ReversalResult, error) {
	body := refundBody{
		Locale:               "en",
		ConversationID:       conversationID,
		PaymentTransactionID: paymentTransactionID,
		Price:                amount.StringFixed(2),
		Currency:             currency,
	}

	var resp reversalResponse
	if err := c.post(ctx, PathRefund, body, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// post sends a signed JSON request and decodes a 2xx JSON response into out.
func (c *httpClient) post(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.signer.authorization(path, raw))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("gateway request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to read gateway response")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("gateway call completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("gateway returned non-2xx status")
		return fmt.Errorf("%w: http status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("malformed gateway response")
		return fmt.Errorf("%w: malformed response", ErrUnavailable)
	}

	return nil
}
