package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tranvd/cinebook/internal/domain"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) Name() string {
	return "mock"
}

func (m *MockPaymentProvider) InitiateCheckout(
	ctx context.Context,
	req domain.CheckoutRequest) (*domain.CheckoutSession, error) {

	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckoutSession), args.Error(1)
}

func (m *MockPaymentProvider) VerifySignature(payload []byte) error {
	args := m.Called(payload)
	return args.Error(0)
}

func (m *MockPaymentProvider) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WebhookEvent), args.Error(1)
}
