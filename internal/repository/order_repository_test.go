package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/database/dbtest"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() (*model.Order, []model.OrderItem) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	productID := "P001"
	orderID := uuid.New()

	order := &model.Order{
		ID:             orderID,
		OrderNumber:    "ORD-20260101-" + orderID.String()[:6],
		ConversationID: uuid.NewString(),
		Customer: model.Customer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
		ShippingAddress: model.Address{ContactName: "Ada Lovelace", Line1: "1 Analytical St", City: "London", Country: "UK"},
		BillingAddress:  model.Address{ContactName: "Ada Lovelace", Line1: "1 Analytical St", City: "London", Country: "UK"},
		Subtotal:        decimal.RequireFromString("80.00"),
		ShippingCost:    decimal.RequireFromString("29.90"),
		TaxAmount:       decimal.Zero,
		DiscountAmount:  decimal.Zero,
		Total:           decimal.RequireFromString("109.90"),
		Currency:        "TRY",
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		Installment:     1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items := []model.OrderItem{
		{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   &productID,
			ProductName: "Product A",
			SKU:         "SKU-P001",
			Category:    "General",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("40.00"),
			TotalPrice:  decimal.RequireFromString("80.00"),
		},
		{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductName: "Gift wrap",
			Quantity:    1,
			UnitPrice:   decimal.Zero,
			TotalPrice:  decimal.Zero,
		},
	}

	return order, items
}

func insertOrder(t *testing.T, repo OrderRepository, order *model.Order, items []model.OrderItem) {
	t.Helper()
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Commit(ctx))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	tests := []struct {
		name   string
		lookup func() (*model.Order, []model.OrderItem, error)
		found  bool
	}{
		{
			name:   "By conversation ID",
			lookup: func() (*model.Order, []model.OrderItem, error) { return repo.GetByConversationID(ctx, order.ConversationID) },
			found:  true,
		},
		{
			name:   "By order number",
			lookup: func() (*model.Order, []model.OrderItem, error) { return repo.GetByOrderNumber(ctx, order.OrderNumber) },
			found:  true,
		},
		{
			name:   "Unknown conversation ID",
			lookup: func() (*model.Order, []model.OrderItem, error) { return repo.GetByConversationID(ctx, uuid.NewString()) },
		},
		{
			name:   "Unknown order number",
			lookup: func() (*model.Order, []model.OrderItem, error) { return repo.GetByOrderNumber(ctx, "ORD-00000000-XXXXXX") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotItems, err := tt.lookup()
			require.NoError(t, err)

			if !tt.found {
				assert.Nil(t, got)
				assert.Nil(t, gotItems)
				return
			}

			require.NotNil(t, got)
			assert.Equal(t, order.ID, got.ID)
			assert.Equal(t, order.ConversationID, got.ConversationID)
			assert.Equal(t, order.Customer, got.Customer)
			assert.Equal(t, order.ShippingAddress, got.ShippingAddress)
			assert.True(t, got.Total.Equal(order.Total))
			assert.True(t, got.TotalsBalanced())
			assert.Equal(t, model.StatePending, got.State())
			assert.Nil(t, got.PaymentID)

			require.Len(t, gotItems, 2)
			byName := map[string]model.OrderItem{}
			for _, it := range gotItems {
				byName[it.ProductName] = it
			}
			require.NotNil(t, byName["Product A"].ProductID)
			assert.Equal(t, "P001", *byName["Product A"].ProductID)
			assert.Nil(t, byName["Gift wrap"].ProductID)
			assert.True(t, byName["Product A"].TotalPrice.Equal(decimal.NewFromInt(80)))
		})
	}
}

func TestOrderRepository_TransactionRollback(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, tx, order))
	require.NoError(t, repo.CreateOrderItems(ctx, tx, items))
	require.NoError(t, tx.Rollback(ctx))

	got, gotItems, err := repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, gotItems)
}

func TestOrderRepository_CreateOrder_UnbalancedTotalsRejected(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, _ := newTestOrder()
	order.Total = decimal.RequireFromString("109.00")

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	err = repo.CreateOrder(ctx, tx, order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create order")
}

func TestOrderRepository_TransitionStatus(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	paidAt := time.Now().UTC().Truncate(time.Second)
	err := repo.TransitionStatus(ctx, nil, order.ID, model.StatePending, model.StatusChange{
		To: model.StatePaid,
		Payment: &model.PaymentDetails{
			PaymentID: "pay-1",
			Transactions: []model.PaymentTransaction{
				{ItemID: "P001", TransactionID: "tx-1", Amount: decimal.RequireFromString("80.00")},
				{ItemID: "SHIPPING", TransactionID: "tx-2", Amount: decimal.RequireFromString("29.90")},
			},
			Installment: 3,
			PaidAt:      paidAt,
		},
	})
	require.NoError(t, err)

	got, _, err := repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePaid, got.State())
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, "pay-1", *got.PaymentID)
	require.Len(t, got.PaymentTransactions, 2)
	assert.Equal(t, "tx-1", got.PaymentTransactions[0].TransactionID)
	assert.True(t, got.PaymentTransactions[0].Amount.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, "SHIPPING", got.PaymentTransactions[1].ItemID)
	assert.True(t, got.PaymentTransactions[1].Amount.Equal(decimal.RequireFromString("29.9")))
	assert.Equal(t, 3, got.Installment)
	require.NotNil(t, got.PaidAt)
	assert.True(t, got.PaidAt.Equal(paidAt))

	// Second transition from pending must not apply.
	reason := "late failure"
	err = repo.TransitionStatus(ctx, nil, order.ID, model.StatePending, model.StatusChange{
		To:            model.StateFailed,
		FailureReason: &reason,
	})
	assert.ErrorIs(t, err, model.ErrStatusConflict)

	got, _, err = repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePaid, got.State())
	assert.Nil(t, got.FailureReason)
}

func TestOrderRepository_MarkTransactionRefunded(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	got, _, err := repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	assert.Empty(t, got.PaymentTransactions)

	require.NoError(t, repo.TransitionStatus(ctx, nil, order.ID, model.StatePending, model.StatusChange{
		To: model.StatePaid,
		Payment: &model.PaymentDetails{
			PaymentID: "pay-1",
			Transactions: []model.PaymentTransaction{
				{ItemID: "P001", TransactionID: "tx-1", Amount: decimal.RequireFromString("80.00")},
				{ItemID: "SHIPPING", TransactionID: "tx-2", Amount: decimal.RequireFromString("29.90")},
			},
			Installment: 1,
			PaidAt:      time.Now(),
		},
	}))

	require.NoError(t, repo.MarkTransactionRefunded(ctx, order.ID, "tx-2"))

	got, _, err = repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	require.Len(t, got.PaymentTransactions, 2)
	assert.Equal(t, "tx-1", got.PaymentTransactions[0].TransactionID)
	assert.False(t, got.PaymentTransactions[0].Refunded)
	assert.Equal(t, "tx-2", got.PaymentTransactions[1].TransactionID)
	assert.True(t, got.PaymentTransactions[1].Refunded)
	assert.True(t, got.PaymentTransactions[1].Amount.Equal(decimal.RequireFromString("29.9")))
}

func TestOrderRepository_TransitionStatus_InTransaction(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	reason := "3DS authentication failed"
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.TransitionStatus(ctx, tx, order.ID, model.StatePending, model.StatusChange{
		To:            model.StateFailed,
		FailureReason: &reason,
	}))
	require.NoError(t, tx.Rollback(ctx))

	got, _, err := repo.GetByConversationID(ctx, order.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatePending, got.State())
}

func TestOrderRepository_TransitionStatus_Concurrent(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		applied   int
		conflicts int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.TransitionStatus(ctx, nil, order.ID, model.StatePending, model.StatusChange{
				To:      model.StatePaid,
				Payment: &model.PaymentDetails{PaymentID: "pay-1", Installment: 1, PaidAt: time.Now()},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				applied++
			case errors.Is(err, model.ErrStatusConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, workers-1, conflicts)
}

func TestOrderRepository_ClaimForReconciliation(t *testing.T) {
	db := dbtest.Start(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	order, items := newTestOrder()
	insertOrder(t, repo, order, items)

	claimed, err := repo.ClaimForReconciliation(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimForReconciliation(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = repo.ClaimForReconciliation(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, claimed)

	// Settled orders cannot be claimed.
	settled, settledItems := newTestOrder()
	insertOrder(t, repo, settled, settledItems)
	reason := "declined"
	require.NoError(t, repo.TransitionStatus(ctx, nil, settled.ID, model.StatePending, model.StatusChange{
		To: model.StateFailed, FailureReason: &reason,
	}))

	claimed, err = repo.ClaimForReconciliation(ctx, settled.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}
