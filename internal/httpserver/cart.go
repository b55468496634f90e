package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_to_cart")

	id, ok := parseID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	user := auth.CurrentUser(c)

	item, err := h.Svc.Add(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("add_to_cart_error", "status", 404, "reason", "product does not exist", "product_id", id)
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	l.Info("add_to_cart_success", "product_id", id, "quantity", item.Quantity)
	flash.Add(c, "success", "Added to cart!")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *CartHTTP) ViewCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view_cart")

	cart, err := h.Svc.View(ctx, auth.CurrentUser(c).ID)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return render(c, http.StatusOK, "cart.html", "Cart", cart)
}
