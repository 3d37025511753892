package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/coupon"
	"storefront/internal/gateway"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxInstallment     = 12
	maxPaymentIDLength = 64
	shippingItemID     = "SHIPPING"
	taxItemID          = "TAX"
)

// CheckoutOptions holds the policy values checkout needs from configuration.
type CheckoutOptions struct {
	Pricing     PricingPolicy
	CallbackURL string
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	*settlement
	products repository.ProductRepository
	coupons  coupon.Validator
	opts     CheckoutOptions
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	outbox repository.OutboxRepository,
	coupons coupon.Validator,
	gw gateway.Client,
	stock *StockReconciler,
	opts CheckoutOptions,
	logger zerolog.Logger,
) CheckoutService {
	logger = logger.With().Str("service", "checkout").Logger()

	return &checkoutService{
		settlement: &settlement{
			orders:  orders,
			outbox:  outbox,
			stock:   stock,
			gateway: gw,
			now:     time.Now,
			logger:  logger,
		},
		products: products,
		coupons:  coupons,
		opts:     opts,
	}
}

// Initiate creates a pending order and starts the 3DS payment.
func (s *checkoutService) Initiate(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := validateCheckoutRequest(req); err != nil {
		s.logger.Debug().Err(err).Msg("checkout request rejected")
		return nil, err
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := Subtotal(items)
	discount := decimal.Zero
	var couponCode *string

	if req.CouponCode != nil && strings.TrimSpace(*req.CouponCode) != "" {
		code := strings.TrimSpace(*req.CouponCode)
		if s.coupons == nil {
			return nil, model.ErrInvalidPromoCode
		}
		discount, err = s.coupons.Discount(ctx, code, subtotal)
		if err != nil {
			s.logger.Warn().Err(err).Str("coupon_code", code).Msg("coupon rejected")
			return nil, err
		}
		couponCode = &code
	}

	totals := s.opts.Pricing.Price(subtotal, discount)
	if !totals.Total.IsPositive() {
		return nil, model.ValidationError("order total must be greater than zero")
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:              uuid.New(),
		OrderNumber:     NewOrderNumber(now),
		ConversationID:  NewConversationID(),
		Customer:        req.Customer,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Subtotal:        totals.Subtotal,
		ShippingCost:    totals.Shipping,
		TaxAmount:       totals.Tax,
		DiscountAmount:  totals.Discount,
		Total:           totals.Total,
		Currency:        s.opts.Pricing.Currency,
		CouponCode:      couponCode,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Installment:     req.Installment,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if order.Installment == 0 {
		order.Installment = 1
	}
	for i := range items {
		items[i].OrderID = order.ID
	}

	if err := s.persist(ctx, order, items); err != nil {
		return nil, err
	}

	logger := s.logger.With().
		Str("order_number", order.OrderNumber).
		Str("conversation_id", order.ConversationID).
		Logger()

	logger.Info().
		Str("total", order.Total.StringFixed(2)).
		Str("card", req.Card.Masked()).
		Int("item_count", len(items)).
		Msg("pending order created, initiating 3DS payment")

	res, err := s.gateway.Initialize3DS(ctx, s.buildInitializeRequest(order, items, req.Card))
	if err != nil {
		s.failInitiation(ctx, order, "gateway unavailable during 3DS initiation: "+err.Error())
		return nil, model.ErrGatewayUnavailable
	}

	switch r := res.(type) {
	case gateway.Challenge:
		if r.ConversationID != "" && r.ConversationID != order.ConversationID {
			logger.Warn().Str("gateway_conversation_id", r.ConversationID).Msg("gateway echoed a different conversation id")
		}
		logger.Info().Str("payment_id", r.PaymentID).Msg("3DS challenge issued")

		return &model.CheckoutResponse{
			OrderID:            order.ID,
			OrderNumber:        order.OrderNumber,
			Total:              order.Total,
			Currency:           order.Currency,
			ThreeDSHTMLContent: r.HTMLContent,
		}, nil
	case gateway.Failure:
		s.failInitiation(ctx, order, fmt.Sprintf("gateway rejected 3DS initiation: %s %s", r.Code, r.Message))
		return nil, model.ErrPaymentDeclined
	default:
		s.failInitiation(ctx, order, "gateway returned no initiation result")
		return nil, model.ErrGatewayUnavailable
	}
}

// Reconcile settles a gateway callback.
func (s *checkoutService) Reconcile(ctx context.Context, p model.CallbackPayload) (*model.ReconcileResult, error) {
	if !ValidConversationID(p.ConversationID) {
		s.logger.Warn().
			Int("conversation_id_length", len(p.ConversationID)).
			Msg("callback rejected: missing or malformed conversation id")
		return nil, model.ErrCallbackRejected
	}

	logger := s.logger.With().Str("conversation_id", p.ConversationID).Logger()

	order, items, err := s.orders.GetByConversationID(ctx, p.ConversationID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load order for callback")
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		logger.Warn().Msg("callback references unknown conversation")
		return nil, model.ErrOrderNotFound
	}

	if !order.IsPending() {
		logger.Info().Stringer("state", order.State()).Msg("duplicate callback ignored")
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State(), AlreadyReconciled: true}, nil
	}

	claimed, err := s.orders.ClaimForReconciliation(ctx, order.ID)
	if err != nil {
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State()},
			fmt.Errorf("failed to claim order: %w", err)
	}
	if !claimed {
		logger.Info().Msg("concurrent callback already reconciling this order")
		return &model.ReconcileResult{OrderNumber: order.OrderNumber, State: order.State(), AlreadyReconciled: true}, nil
	}

	if p.Status != gateway.StatusSuccess || p.MDStatus != gateway.MDStatusAuthenticated {
		reason := fmt.Sprintf("3DS authentication failed (status=%s, mdStatus=%s)",
			callbackToken(p.Status, 32), callbackToken(p.MDStatus, 8))
		return s.fail(ctx, order, items, reason, model.ErrPaymentDeclined)
	}

	if !validCallbackToken(p.PaymentID, maxPaymentIDLength) {
		return s.fail(ctx, order, items, "callback carried no valid payment id", model.ErrVerificationFailed)
	}

	completed, err := s.gateway.Complete3DS(ctx, p.PaymentID, order.ConversationID)
	if err != nil {
		return s.fail(ctx, order, items, "gateway unavailable during 3DS completion", model.ErrGatewayUnavailable)
	}

	paymentID := p.PaymentID
	switch r := completed.(type) {
	case gateway.Payment:
		if r.PaymentID != "" {
			paymentID = r.PaymentID
		}
	case gateway.Failure:
		return s.fail(ctx, order, items, fmt.Sprintf("3DS completion failed: %s %s", r.Code, r.Message), model.ErrPaymentDeclined)
	}

	// The completion response alone is never trusted: the payment is read back
	// from the gateway and checked against the stored order.
	retrieved, err := s.gateway.RetrievePayment(ctx, gateway.RetrieveRequest{
		PaymentID:      paymentID,
		ConversationID: order.ConversationID,
	})
	if err != nil {
		return s.fail(ctx, order, items, "gateway unavailable during payment verification", model.ErrGatewayUnavailable)
	}

	return s.settleRetrieved(ctx, order, items, retrieved)
}

// priceItems snapshots catalogue prices into order items.
func (s *checkoutService) priceItems(ctx context.Context, cart []model.CartItem) ([]model.OrderItem, error) {
	ids := make([]string, 0, len(cart))
	seen := make(map[string]bool, len(cart))
	for _, it := range cart {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load products")
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]model.OrderItem, 0, len(cart))
	for _, it := range cart {
		p, ok := byID[it.ProductID]
		if !ok {
			s.logger.Warn().Str("product_id", it.ProductID).Msg("cart references unknown product")
			return nil, model.ErrProductNotFound
		}

		productID := p.ID
		items = append(items, model.OrderItem{
			ID:          uuid.New(),
			ProductID:   &productID,
			ProductName: p.Name,
			VariantName: it.VariantName,
			SKU:         p.SKU,
			Category:    p.Category,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
			TotalPrice:  p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}

	return items, nil
}

// persist writes the order and its items in one transaction.
func (s *checkoutService) persist(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orders.CreateOrder(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orders.CreateOrderItems(ctx, tx, items); err != nil {
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// failInitiation marks an order whose payment never started. No event is
// emitted: the buyer sees the error synchronously.
func (s *checkoutService) failInitiation(ctx context.Context, order *model.Order, reason string) {
	ctx = context.WithoutCancel(ctx)

	reason = cleanReason(reason)

	s.logger.Warn().
		Str("order_number", order.OrderNumber).
		Str("reason", reason).
		Msg("3DS initiation failed")

	change := model.StatusChange{To: model.StateFailed, FailureReason: &reason}
	if err := s.orders.TransitionStatus(ctx, nil, order.ID, model.StatePending, change); err != nil {
		s.logger.Error().Err(err).Str("order_number", order.OrderNumber).Msg("failed to mark order failed")
		return
	}
	applyChange(order, change, s.now())
}

func (s *checkoutService) buildInitializeRequest(order *model.Order, items []model.OrderItem, card model.Card) *gateway.InitializeRequest {
	// The gateway prices basket lines, not units: each line carries its
	// quantity-extended total and the line prices must add up to Price.
	basket := make([]gateway.BasketItem, 0, len(items)+2)
	price := decimal.Zero

	for _, it := range items {
		if !it.TotalPrice.IsPositive() {
			continue
		}
		id := it.SKU
		if it.ProductID != nil {
			id = *it.ProductID
		}
		name := it.ProductName
		if it.VariantName != "" {
			name += " (" + it.VariantName + ")"
		}
		basket = append(basket, gateway.BasketItem{
			ID:       id,
			Name:     name,
			Category: it.Category,
			ItemType: gateway.ItemTypePhysical,
			Price:    it.TotalPrice,
		})
		price = price.Add(it.TotalPrice)
	}

	if order.ShippingCost.IsPositive() {
		basket = append(basket, gateway.BasketItem{
			ID: shippingItemID, Name: "Shipping", Category: "Shipping",
			ItemType: gateway.ItemTypeVirtual, Price: order.ShippingCost,
		})
		price = price.Add(order.ShippingCost)
	}

	if order.TaxAmount.IsPositive() {
		basket = append(basket, gateway.BasketItem{
			ID: taxItemID, Name: "Tax", Category: "Tax",
			ItemType: gateway.ItemTypeVirtual, Price: order.TaxAmount,
		})
		price = price.Add(order.TaxAmount)
	}

	buyerID := order.Customer.ID
	if buyerID == "" {
		buyerID = "guest-" + order.ID.String()
	}

	return &gateway.InitializeRequest{
		ConversationID: order.ConversationID,
		Price:          price,
		PaidPrice:      order.Total,
		Currency:       order.Currency,
		Installment:    order.Installment,
		BasketID:       order.OrderNumber,
		CallbackURL:    s.opts.CallbackURL,
		Card: gateway.Card{
			HolderName:  card.HolderName,
			Number:      strings.ReplaceAll(card.Number, " ", ""),
			ExpireMonth: card.ExpireMonth,
			ExpireYear:  card.ExpireYear,
			CVC:         card.CVC,
		},
		Buyer: gateway.Buyer{
			ID:             buyerID,
			Name:           order.Customer.FirstName,
			Surname:        order.Customer.LastName,
			Email:          order.Customer.Email,
			Phone:          order.Customer.Phone,
			IdentityNumber: order.Customer.IdentityNumber,
			IP:             order.Customer.IP,
			City:           order.BillingAddress.City,
			Country:        order.BillingAddress.Country,
			Address:        joinAddress(order.BillingAddress),
		},
		ShippingAddress: toGatewayAddress(order.ShippingAddress),
		BillingAddress:  toGatewayAddress(order.BillingAddress),
		BasketItems:     basket,
	}
}

func toGatewayAddress(a model.Address) gateway.Address {
	return gateway.Address{
		ContactName: a.ContactName,
		City:        a.City,
		Country:     a.Country,
		Address:     joinAddress(a),
		ZipCode:     a.PostalCode,
	}
}

func joinAddress(a model.Address) string {
	if a.Line2 == "" {
		return a.Line1
	}
	return a.Line1 + ", " + a.Line2
}
