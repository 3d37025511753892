package integration

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront/internal/gateway"

	"github.com/shopspring/decimal"
)

type fakeLine struct {
	itemID        string
	transactionID string
	price         decimal.Decimal
}

type fakePayment struct {
	paymentID string
	basketID  string
	paidPrice string
	currency  string
	lines     []fakeLine
}

// fakeGateway is an in-memory stand-in for the card gateway. It remembers
// what was initialised so completion and retrieval can answer consistently.
type fakeGateway struct {
	mu          sync.Mutex
	payments    map[string]fakePayment
	calls       map[string]int
	lastConvID  string
	refuseVoids bool
	// refunded and captured are keyed by item transaction ID.
	refunded map[string]decimal.Decimal
	captured map[string]decimal.Decimal
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()

	g := &fakeGateway{
		payments: map[string]fakePayment{},
		calls:    map[string]int{},
		refunded: map[string]decimal.Decimal{},
		captured: map[string]decimal.Decimal{},
	}
	srv := httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *fakeGateway) callCount(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[path]
}

func (g *fakeGateway) lastConversationID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastConvID
}

func (g *fakeGateway) refundedTotal() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := decimal.Zero
	for _, amount := range g.refunded {
		total = total.Add(amount)
	}
	return total
}

func (g *fakeGateway) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	str := func(k string) string { s, _ := body[k].(string); return s }

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[r.URL.Path]++

	switch r.URL.Path {
	case gateway.PathInitialize3DS:
		conv := str("conversationId")
		p := fakePayment{
			paymentID: "pay-" + conv[:8],
			basketID:  str("basketId"),
			paidPrice: str("paidPrice"),
			currency:  str("currency"),
		}
		items, _ := body["basketItems"].([]any)
		for _, raw := range items {
			item, _ := raw.(map[string]any)
			id, _ := item["id"].(string)
			price, _ := item["price"].(string)
			line := fakeLine{
				itemID:        id,
				transactionID: "tx-" + conv[:8] + "-" + id,
				price:         decimal.RequireFromString(price),
			}
			p.lines = append(p.lines, line)
			g.captured[line.transactionID] = line.price
		}
		g.payments[conv] = p
		g.lastConvID = conv
		respond(w, map[string]any{
			"status":             gateway.StatusSuccess,
			"conversationId":     conv,
			"paymentId":          p.paymentID,
			"threeDSHtmlContent": base64.StdEncoding.EncodeToString([]byte("<form>challenge</form>")),
		})

	case gateway.PathComplete3DS:
		g.paymentResponse(w, str("conversationId"))

	case gateway.PathRetrieve:
		g.paymentResponse(w, str("paymentConversationId"))

	case gateway.PathCancel:
		if g.refuseVoids {
			respond(w, map[string]any{"status": "failure", "errorCode": "5093", "errorMessage": "void window closed"})
			return
		}
		respond(w, map[string]any{"status": gateway.StatusSuccess, "paymentId": str("paymentId")})

	case gateway.PathRefund:
		txID := str("paymentTransactionId")
		amount, err := decimal.NewFromString(str("price"))
		captured, ok := g.captured[txID]
		if err != nil || !ok || g.refunded[txID].Add(amount).GreaterThan(captured) {
			respond(w, map[string]any{"status": "failure", "errorCode": "5101", "errorMessage": "refund exceeds captured amount"})
			return
		}
		g.refunded[txID] = g.refunded[txID].Add(amount)
		respond(w, map[string]any{"status": gateway.StatusSuccess, "price": str("price"), "currency": str("currency")})

	default:
		http.NotFound(w, r)
	}
}

func (g *fakeGateway) paymentResponse(w http.ResponseWriter, conv string) {
	p, ok := g.payments[conv]
	if !ok {
		respond(w, map[string]any{"status": "failure", "errorCode": "5001", "errorMessage": "payment not found"})
		return
	}
	transactions := make([]map[string]any, 0, len(p.lines))
	for _, line := range p.lines {
		transactions = append(transactions, map[string]any{
			"itemId":               line.itemID,
			"paymentTransactionId": line.transactionID,
			"paidPrice":            line.price.StringFixed(2),
		})
	}

	respond(w, map[string]any{
		"status":           gateway.StatusSuccess,
		"conversationId":   conv,
		"paymentId":        p.paymentID,
		"basketId":         p.basketID,
		"paymentStatus":    gateway.PaymentStatusSuccess,
		"price":            p.paidPrice,
		"paidPrice":        p.paidPrice,
		"currency":         p.currency,
		"installment":      1,
		"mdStatus":         gateway.MDStatusAuthenticated,
		"itemTransactions": transactions,
	})
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
