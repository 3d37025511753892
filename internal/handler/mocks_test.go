package handler

import (
	"context"

	"storefront/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Initiate(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResponse), args.Error(1)
}

func (m *MockCheckoutService) Reconcile(ctx context.Context, payload model.CallbackPayload) (*model.ReconcileResult, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileResult), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	return m.response(m.Called(ctx, orderNumber))
}

func (m *MockOrderService) Requery(ctx context.Context, orderNumber string) (*model.ReconcileResult, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReconcileResult), args.Error(1)
}

func (m *MockOrderService) Cancel(ctx context.Context, orderNumber, reason string) (*model.OrderResponse, error) {
	return m.response(m.Called(ctx, orderNumber, reason))
}

func (m *MockOrderService) MarkShipped(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	return m.response(m.Called(ctx, orderNumber))
}

func (m *MockOrderService) MarkDelivered(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	return m.response(m.Called(ctx, orderNumber))
}

func (m *MockOrderService) response(args mock.Arguments) (*model.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}
