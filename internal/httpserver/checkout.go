package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/metrics"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/service"
)

const maxWebhookBody = 64 << 10

type CheckoutHTTP struct {
	Svc     *service.CheckoutService
	Metrics *metrics.Metrics
}

func (h *CheckoutHTTP) CreateSession(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create_session")

	sess, err := h.Svc.CreateSession(ctx, auth.CurrentUser(c))
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			h.Metrics.CheckoutSession(metrics.CheckoutEmptyCart)
			l.Info("checkout_error", "status", 303, "reason", "cart is empty")
			flash.Add(c, "warning", "Your cart is empty.")
			return c.Redirect(http.StatusSeeOther, "/view-cart")
		}
		h.Metrics.CheckoutSession(metrics.CheckoutFailed)
		l.Error("checkout_error", "status", 502, "reason", "payment provider failed", "error", err)
		return c.String(http.StatusBadGateway, err.Error())
	}

	h.Metrics.CheckoutSession(metrics.CheckoutCreated)
	l.Info("checkout_session_created", "session_id", sess.ID)
	return c.Redirect(http.StatusSeeOther, sess.URL)
}

func (h *CheckoutHTTP) Success(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.success")

	confirmed := false
	user := auth.CurrentUser(c)
	sessionID := c.QueryParam("session_id")
	if user != nil && sessionID != "" {
		err := h.Svc.ConfirmSuccess(ctx, user, sessionID)
		switch {
		case err == nil:
			confirmed = true
			h.Metrics.CheckoutSession(metrics.CheckoutCompleted)
			l.Info("checkout_completed", "session_id", sessionID)
		case errors.Is(err, service.ErrPaymentUnverified):
			h.Metrics.CheckoutSession(metrics.CheckoutUnverified)
			l.Warn("checkout_unverified", "session_id", sessionID, "error", err)
		default:
			h.Metrics.CheckoutSession(metrics.CheckoutUnverified)
			l.Error("checkout_unverified", "session_id", sessionID, "reason", "cannot reach payment provider", "error", err)
		}
	}
	return render(c, http.StatusOK, "success.html", "Order", confirmed)
}

func (h *CheckoutHTTP) Cancel(c echo.Context) error {
	flash.Add(c, "info", "Payment was cancelled.")
	return c.Redirect(http.StatusSeeOther, "/view-cart")
}

func (h *CheckoutHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest)
	}

	if err := h.Svc.HandleWebhook(ctx, payload, c.Request().Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			l.Warn("webhook_error", "status", 400, "reason", "invalid signature", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest)
		}
		l.Error("webhook_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
