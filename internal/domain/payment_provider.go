package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
}

type CheckoutRequest struct {
	OrderCode   int64
	Amount      decimal.Decimal
	Description string
	Items       []CheckoutItem
}

type CheckoutSession struct {
	OrderCode   int64
	CheckoutURL string
}

// WebhookEvent is a provider notification after signature verification.
type WebhookEvent struct {
	OrderCode     int64
	Amount        decimal.Decimal
	Succeeded     bool
	Cancelled     bool
	Code          string
	TransactionID string
	TransactionAt time.Time
}

// PaymentProvider is a capability interface so that additional providers can
// be added without touching the reconciliation logic.
type PaymentProvider interface {
	Name() string
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// VerifySignature authenticates the raw webhook payload against the
	// provider's shared secret. It must be called before any field of the
	// payload is trusted.
	VerifySignature(payload []byte) error
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}
