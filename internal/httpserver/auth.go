package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/forms"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

type registerView struct {
	Form   forms.RegisterForm
	Errors forms.Errors
}

type loginView struct {
	Form   forms.LoginForm
	Errors forms.Errors
}

func (h *AuthHTTP) RegisterForm(c echo.Context) error {
	return render(c, http.StatusOK, "register.html", "Register", registerView{Errors: forms.Errors{}})
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var f forms.RegisterForm
	if err := c.Bind(&f); err != nil {
		l.Warn("register_error", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	if errs := forms.Validate(&f); errs.Any() {
		l.Info("register_error", "status", 422, "reason", "validation failed")
		f.Password = ""
		return render(c, http.StatusUnprocessableEntity, "register.html", "Register", registerView{Form: f, Errors: errs})
	}

	user, err := h.Svc.Register(ctx, f.Email, f.Password, f.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			l.Info("register_error", "status", 303, "reason", "email already registered")
			flash.Add(c, "warning", "You've already signed up with that email, login instead!")
			return c.Redirect(http.StatusSeeOther, auth.LoginPath)
		case errors.Is(err, service.ErrValidation):
			f.Password = ""
			return render(c, http.StatusUnprocessableEntity, "register.html", "Register",
				registerView{Form: f, Errors: forms.Errors{"_form": "All fields are required."}})
		default:
			l.Error("register_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
	}

	if err := h.startSession(c, user); err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	l.Info("register_success", "user_id", user.ID, "role", user.Role)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHTTP) LoginForm(c echo.Context) error {
	return render(c, http.StatusOK, "login.html", "Login", loginView{Errors: forms.Errors{}})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var f forms.LoginForm
	if err := c.Bind(&f); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	if errs := forms.Validate(&f); errs.Any() {
		f.Password = ""
		return render(c, http.StatusUnprocessableEntity, "login.html", "Login", loginView{Form: f, Errors: errs})
	}

	user, err := h.Svc.Login(ctx, f.Email, f.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Info("login_error", "status", 303, "reason", "unknown email")
			flash.Add(c, "warning", "That email does not exist.")
			return c.Redirect(http.StatusSeeOther, auth.LoginPath)
		case errors.Is(err, service.ErrInvalidCredentials):
			l.Info("login_error", "status", 303, "reason", "wrong password")
			flash.Add(c, "warning", "Password incorrect.")
			return c.Redirect(http.StatusSeeOther, auth.LoginPath)
		default:
			l.Error("login_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
	}

	if err := h.startSession(c, user); err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	l.Info("login_success", "user_id", user.ID)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	user := auth.CurrentUser(c)
	if err := h.Svc.Logout(ctx, user.ID); err != nil {
		l.Error("logout_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.SessionCookie, "/", h.CookieSecure))
	flash.Add(c, "info", "You have been logged out and your cart has been cleared.")
	l.Info("logout_success")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHTTP) startSession(c echo.Context, user *models.User) error {
	tok, exp, err := h.Svc.IssueSession(user)
	if err != nil {
		return err
	}
	c.SetCookie(tokens.CreateCookie(tokens.SessionCookie, tok, "/", exp, h.CookieSecure))
	auth.SetUser(c, user)
	return nil
}
