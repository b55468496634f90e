package httpserver

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/middleware/metrics"
)

const webhookPath = "/webhook/stripe"

type Deps struct {
	AuthHandler     *AuthHTTP
	CatalogHandler  *CatalogHTTP
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP

	Session  *auth.SessionMiddleware
	Renderer *Renderer
	Metrics  *metrics.Metrics
	DB       *gorm.DB

	// Static is the embedded asset tree served under /static.
	Static fs.FS
	// UploadDir is served under UploadPrefix when images are stored locally.
	UploadDir    string
	UploadPrefix string

	CookieSecure   bool
	LoginRateLimit int
	// Webhooks enables the payment provider callback.
	Webhooks bool
}

func Register(e *echo.Echo, d *Deps) {
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = HTTPErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, d.DB); err != nil {
			logging.FromContext(ctx).Warn("ready_check_failed", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", d.Metrics.Handler())
	}
	if d.Static != nil {
		e.StaticFS("/static", d.Static)
	}
	if d.UploadDir != "" && d.UploadPrefix != "" {
		e.Static(d.UploadPrefix, d.UploadDir)
	}

	if d.Webhooks {
		e.POST(webhookPath, d.CheckoutHandler.Webhook)
	}

	csrfCfg := csrf.DefaultConfig()
	csrfCfg.Secure = d.CookieSecure
	csrfCfg.SkipPaths = []string{webhookPath}

	e.Use(d.Session.LoadUser, csrf.Middleware(csrfCfg))

	limit := d.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	limiter := echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(limit)))

	ah := d.AuthHandler
	e.GET("/register", ah.RegisterForm)
	e.POST("/register", ah.Register, limiter)
	e.GET("/login", ah.LoginForm)
	e.POST("/login", ah.Login, limiter)
	e.GET("/logout", ah.Logout, auth.RequireLogin)

	ch := d.CatalogHandler
	e.GET("/", ch.Home)
	e.GET("/search", ch.Search)
	e.GET("/product/:id", ch.Product)

	e.GET("/add-product", ch.NewProductForm, auth.RequireAdmin)
	e.POST("/add-product", ch.CreateProduct, auth.RequireAdmin)
	e.GET("/edit-product/:id", ch.EditProductForm, auth.RequireAdmin)
	e.POST("/edit-product/:id", ch.EditProduct, auth.RequireAdmin)
	e.GET("/delete-product/:id", ch.DeleteProduct, auth.RequireAdmin)

	cart := d.CartHandler
	e.GET("/add-to-cart/:id", cart.AddToCart, auth.RequireLogin)
	e.GET("/view-cart", cart.ViewCart, auth.RequireLogin)

	co := d.CheckoutHandler
	e.POST("/create-checkout-session", co.CreateSession, auth.RequireLogin)
	e.GET("/success", co.Success)
	e.GET("/cancel", co.Cancel)

	e.GET("/services", staticPage("services.html", "Services"))
	e.GET("/about", staticPage("about.html", "About"))
	e.GET("/contact", staticPage("contact.html", "Contact"))
}
