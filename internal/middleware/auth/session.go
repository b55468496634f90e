package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	userKey = "user"

	LoginPath    = "/login"
	loginMessage = "Please log in to access this page."
)

type UserLoader interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
}

type SessionMiddleware struct {
	Secret       []byte
	Users        UserLoader
	CookieSecure bool
}

// LoadUser restores the session user on every request. A bad or expired
// token is dropped and the request continues anonymously. A valid token
// for a user that no longer exists is a 404.
func (m *SessionMiddleware) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(tokens.SessionCookie)
		if err != nil || ck.Value == "" {
			return next(c)
		}

		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		claims, err := tokens.SessionClaimsFromToken(ck.Value, m.Secret)
		if err != nil {
			l.Debug("session_dropped", "reason", "invalid session token", "error", err)
			c.SetCookie(tokens.DeleteCookie(tokens.SessionCookie, "/", m.CookieSecure))
			return next(c)
		}
		id, err := claims.UserID()
		if err != nil {
			c.SetCookie(tokens.DeleteCookie(tokens.SessionCookie, "/", m.CookieSecure))
			return next(c)
		}

		user, err := m.Users.UserByID(ctx, id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				l.Warn("load_user_failed", "status", 404, "reason", "session user does not exist", "user_id", id)
				return echo.NewHTTPError(http.StatusNotFound)
			}
			l.Error("load_user_failed", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError)
		}

		setUserContext(c, user)
		return next(c)
	}
}

func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

// RequireLogin sends anonymous visitors to the login page.
func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			flash.Add(c, "info", loginMessage)
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
		return next(c)
	}
}

// RequireAdmin answers 403 to anyone without the admin role.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := CurrentUser(c)
		if !u.IsAdmin() {
			logging.FromContext(c.Request().Context()).Warn("admin_required", "status", 403, "path", c.Path())
			return echo.NewHTTPError(http.StatusForbidden)
		}
		return next(c)
	}
}

func setUserContext(c echo.Context, u *models.User) {
	c.Set(userKey, u)
	c.Set("user_id", u.ID)
	c.Set("role", u.Role)

	req := c.Request()
	l := logging.FromContext(req.Context()).With("user_id", u.ID)
	c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
}

// SetUser is used by handlers that authenticate mid-request.
func SetUser(c echo.Context, u *models.User) {
	setUserContext(c, u)
}
