package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/metrics"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := setup("serve")
	if err != nil {
		return err
	}
	defer db.Close(env.db)
	cfg, logger := env.cfg, env.logger

	config.MustNonEmptyBytes(cfg.SessionSecret, "SESSION_SECRET")
	config.MustNonEmpty(cfg.StripeAPIKey, "STRIPE_API_KEY")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	e, err := newServer(ctx, env, publisher)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	logger.Info("storefront stopped")
	return nil
}

// newServer brings the schema up to date and assembles the echo instance.
func newServer(ctx context.Context, env *env, publisher events.Publisher) (*echo.Echo, error) {
	cfg, logger := env.cfg, env.logger

	if err := db.Migrate(ctx, env.db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	store, err := storage.New(ctx, cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	r := &repo.GormRepo{DB: env.db}
	m := metrics.New()

	stripe := payment.NewStripe(payment.StripeConfig{
		APIKey:        cfg.StripeAPIKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	processor := payment.NewGuarded(stripe, cfg.PaymentTimeout, func(from, to string) {
		logger.Warn("payment_breaker_state", "from", from, "to", to)
	})

	authSvc := &service.AuthService{Repo: r, Events: publisher, Secret: cfg.SessionSecret, SessionTTL: cfg.SessionTTL}
	cartSvc := &service.CartService{Repo: r, Events: publisher}
	catalogSvc := &service.CatalogService{Repo: r, Store: store, Events: publisher}
	if idx := env.searchIndex(ctx); idx != nil {
		catalogSvc.Index = search.Index(idx)
	}
	checkoutSvc := &service.CheckoutService{
		Cart:     cartSvc,
		Payments: processor,
		Webhooks: stripe,
		Events:   publisher,
		BaseURL:  cfg.BaseURL,
		Currency: cfg.CheckoutCurrency,
	}

	renderer, err := httpserver.NewRenderer(web.FS, cartSvc)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(m.Middleware())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit(strconv.Itoa(cfg.Upload.MaxMB) + "M"))

	deps := &httpserver.Deps{
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalogSvc},
		CartHandler:     &httpserver.CartHTTP{Svc: cartSvc},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkoutSvc, Metrics: m},
		Session:         &auth.SessionMiddleware{Secret: cfg.SessionSecret, Users: authSvc, CookieSecure: cfg.CookieSecure},
		Renderer:        renderer,
		Metrics:         m,
		DB:              env.db,
		Static:          static,
		CookieSecure:    cfg.CookieSecure,
		LoginRateLimit:  cfg.LoginRateLimit,
		Webhooks:        cfg.StripeWebhookSecret != "",
	}
	if local, ok := store.(*storage.LocalStore); ok {
		deps.UploadDir = local.Root()
		deps.UploadPrefix = cfg.Upload.URLPrefix
	}
	httpserver.Register(e, deps)
	return e, nil
}
