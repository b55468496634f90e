package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	// BackendURL overrides the API endpoint (stripe-mock, tests).
	BackendURL string
}

type Stripe struct {
	sessions      *session.Client
	webhookSecret string
}

func NewStripe(cfg StripeConfig) *Stripe {
	bcfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if cfg.BackendURL != "" {
		bcfg.URL = stripe.String(cfg.BackendURL)
	}
	return &Stripe{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, bcfg),
			Key: cfg.APIKey,
		},
		webhookSecret: cfg.WebhookSecret,
	}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.ClientReferenceID),
	}
	params.Context = ctx

	for _, li := range req.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return fromStripe(cs), nil
}

func (s *Stripe) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := s.sessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", id, err)
	}
	return fromStripe(cs), nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Session, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	return fromStripe(&cs), nil
}

func fromStripe(cs *stripe.CheckoutSession) *Session {
	return &Session{
		ID:                cs.ID,
		URL:               cs.URL,
		Paid:              cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: cs.ClientReferenceID,
		AmountTotal:       cs.AmountTotal,
	}
}
