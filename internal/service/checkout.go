package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
)

type CheckoutService struct {
	Cart     *CartService
	Payments payment.Processor
	Webhooks payment.WebhookParser
	Events   events.Publisher
	BaseURL  string
	Currency string
}

func (s *CheckoutService) SuccessURL() string {
	return s.BaseURL + "/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s *CheckoutService) CancelURL() string {
	return s.BaseURL + "/cancel"
}

// CreateSession never reaches the payment provider for an empty cart.
func (s *CheckoutService) CreateSession(ctx context.Context, user *models.User) (*payment.Session, error) {
	cart, err := s.Cart.View(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return nil, ErrEmptyCart
	}

	req := payment.CheckoutRequest{
		Currency:          s.Currency,
		CustomerEmail:     user.Email,
		ClientReferenceID: strconv.FormatUint(uint64(user.ID), 10),
		SuccessURL:        s.SuccessURL(),
		CancelURL:         s.CancelURL(),
		Lines:             make([]payment.LineItem, 0, len(cart.Lines)),
	}
	for _, line := range cart.Lines {
		req.Lines = append(req.Lines, payment.LineItem{
			Name:       line.Item.Product.Title,
			UnitAmount: line.Item.Product.PriceCents,
			Quantity:   int64(line.Item.Quantity),
		})
	}

	sess, err := s.Payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.CheckoutStarted, user.ID, map[string]any{
		"userID":     user.ID,
		"sessionID":  sess.ID,
		"totalCents": cart.TotalCents,
	})
	return sess, nil
}

// ConfirmSuccess clears the cart only when the provider reports the session
// as paid by this user.
func (s *CheckoutService) ConfirmSuccess(ctx context.Context, user *models.User, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("missing session id: %w", ErrPaymentUnverified)
	}
	sess, err := s.Payments.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if !sess.Paid {
		return fmt.Errorf("session %s not paid: %w", sessionID, ErrPaymentUnverified)
	}
	if sess.ClientReferenceID != strconv.FormatUint(uint64(user.ID), 10) {
		return fmt.Errorf("session %s belongs to another user: %w", sessionID, ErrPaymentUnverified)
	}
	return s.complete(ctx, user.ID, sess)
}

// HandleWebhook verifies a provider callback and clears the paying user's cart.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	sess, err := s.Webhooks.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if sess == nil || !sess.Paid {
		return nil
	}
	uid, err := strconv.ParseUint(sess.ClientReferenceID, 10, 64)
	if err != nil || uid == 0 {
		logging.FromContext(ctx).Warn("webhook_ignored", "reason", "no client reference", "session_id", sess.ID)
		return nil
	}
	return s.complete(ctx, uint(uid), sess)
}

func (s *CheckoutService) complete(ctx context.Context, userID uint, sess *payment.Session) error {
	if err := s.Cart.Clear(ctx, userID, "checkout"); err != nil {
		return err
	}
	events.Emit(ctx, s.Events, events.CheckoutCompleted, userID, map[string]any{
		"userID":      userID,
		"sessionID":   sess.ID,
		"amountTotal": sess.AmountTotal,
	})
	return nil
}
