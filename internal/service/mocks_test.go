package service

import (
	"context"
	"time"

	"storefront/internal/gateway"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByConversationID(ctx context.Context, conversationID string) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) ClaimForReconciliation(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from model.OrderState, change model.StatusChange) error {
	args := m.Called(ctx, tx, id, from, change)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkTransactionRefunded(ctx context.Context, id uuid.UUID, transactionID string) error {
	args := m.Called(ctx, id, transactionID)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, event *model.OrderEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockOutboxRepository) ClaimPending(ctx context.Context, tx pgx.Tx, limit int) ([]model.OrderEvent, error) {
	args := m.Called(ctx, tx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderEvent), args.Error(1)
}

func (m *MockOutboxRepository) MarkSent(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string, maxAttempts int, retryAfter time.Duration) error {
	args := m.Called(ctx, tx, id, reason, maxAttempts, retryAfter)
	return args.Error(0)
}

// MockCouponValidator is a mock implementation of coupon.Validator.
type MockCouponValidator struct {
	mock.Mock
}

func (m *MockCouponValidator) Discount(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, code, subtotal)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCouponValidator) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockGateway is a mock implementation of gateway.Client.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Initialize3DS(ctx context.Context, req *gateway.InitializeRequest) (gateway.InitResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(gateway.InitResult)
	return res, args.Error(1)
}

func (m *MockGateway) Complete3DS(ctx context.Context, paymentID, conversationID string) (gateway.PaymentResult, error) {
	args := m.Called(ctx, paymentID, conversationID)
	res, _ := args.Get(0).(gateway.PaymentResult)
	return res, args.Error(1)
}

func (m *MockGateway) RetrievePayment(ctx context.Context, req gateway.RetrieveRequest) (gateway.PaymentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(gateway.PaymentResult)
	return res, args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, paymentID, conversationID string) (gateway.ReversalResult, error) {
	args := m.Called(ctx, paymentID, conversationID)
	res, _ := args.Get(0).(gateway.ReversalResult)
	return res, args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, paymentTransactionID string, amount decimal.Decimal, currency, conversationID string) (gateway.ReversalResult, error) {
	args := m.Called(ctx, paymentTransactionID, amount, currency, conversationID)
	res, _ := args.Get(0).(gateway.ReversalResult)
	return res, args.Error(1)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }
