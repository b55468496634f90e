// Package payment talks to the hosted checkout provider.
package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrUnavailable      = errors.New("payment: provider unavailable")
)

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutRequest struct {
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Lines             []LineItem
}

type Session struct {
	ID                string
	URL               string
	Paid              bool
	ClientReferenceID string
	AmountTotal       int64
}

type Processor interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
}

// WebhookParser verifies a provider callback. It returns a nil session
// for events other than a completed checkout.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*Session, error)
}
