package httpserver

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/web"
)

const (
	testOrigin        = "http://example.com"
	testWebhookSecret = "whsec_test"
)

func init() {
	hash.Cost = bcrypt.MinCost
}

type fakeProcessor struct {
	mu       sync.Mutex
	created  []payment.CheckoutRequest
	sessions map[string]*payment.Session
	err      error
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Session{ID: "cs_test", URL: "https://pay.test/cs_test"}, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

func (f *fakeProcessor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type app struct {
	e        *echo.Echo
	db       *gorm.DB
	payments *fakeProcessor
	metrics  *metrics.Metrics
	uploads  string
}

func newApp(t *testing.T) *app {
	t.Helper()

	gdb := dbtest.New(t)
	r := &repo.GormRepo{DB: gdb}
	uploads := t.TempDir()
	store, err := storage.NewLocal(uploads, "/uploads")
	require.NoError(t, err)

	pay := &fakeProcessor{sessions: map[string]*payment.Session{}}
	m := metrics.New()

	authSvc := &service.AuthService{Repo: r, Events: events.Nop{}, Secret: []byte("test-secret")}
	cartSvc := &service.CartService{Repo: r, Events: events.Nop{}}
	catalogSvc := &service.CatalogService{Repo: r, Store: store, Events: events.Nop{}}
	checkoutSvc := &service.CheckoutService{
		Cart:     cartSvc,
		Payments: pay,
		Webhooks: payment.NewStripe(payment.StripeConfig{APIKey: "sk_test", WebhookSecret: testWebhookSecret}),
		Events:   events.Nop{},
		BaseURL:  "http://shop.test",
		Currency: "usd",
	}

	renderer, err := NewRenderer(web.FS, cartSvc)
	require.NoError(t, err)
	static, err := fs.Sub(web.FS, "static")
	require.NoError(t, err)

	e := echo.New()
	e.Use(m.Middleware())
	Register(e, &Deps{
		AuthHandler:     &AuthHTTP{Svc: authSvc},
		CatalogHandler:  &CatalogHTTP{Svc: catalogSvc},
		CartHandler:     &CartHTTP{Svc: cartSvc},
		CheckoutHandler: &CheckoutHTTP{Svc: checkoutSvc, Metrics: m},
		Session:         &auth.SessionMiddleware{Secret: []byte("test-secret"), Users: authSvc},
		Renderer:        renderer,
		Metrics:         m,
		DB:              gdb,
		Static:          static,
		UploadDir:       uploads,
		UploadPrefix:    "/uploads",
		LoginRateLimit:  1000,
		Webhooks:        true,
	})

	return &app{e: e, db: gdb, payments: pay, metrics: m, uploads: uploads}
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	t       *testing.T
	app     *app
	cookies map[string]*http.Cookie
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) csrfToken() string {
	b.t.Helper()
	if _, ok := b.cookies["XSRF-TOKEN"]; !ok {
		b.get("/health/live")
	}
	ck, ok := b.cookies["XSRF-TOKEN"]
	require.True(b.t, ok, "no csrf cookie")
	return ck.Value
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", b.csrfToken())
	return b.do(newFormRequest(path, form))
}

func (b *browser) postMultipart(path string, form url.Values, fileName string, content []byte) *httptest.ResponseRecorder {
	b.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(b.t, w.WriteField(k, v))
		}
	}
	require.NoError(b.t, w.WriteField("csrf_token", b.csrfToken()))
	if fileName != "" {
		fw, err := w.CreateFormFile("image", fileName)
		require.NoError(b.t, err)
		_, err = fw.Write(content)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("Origin", testOrigin)
	return b.do(req)
}

func (b *browser) register(email, password, name string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.post("/register", url.Values{"email": {email}, "password": {password}, "name": {name}})
}

// loggedIn registers a fresh account; the first one in an app is the admin.
func (a *app) loggedIn(t *testing.T, email string) (*browser, *models.User) {
	t.Helper()
	b := a.browser(t)
	rec := b.register(email, "password1", "Tester")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	var u models.User
	require.NoError(t, a.db.Where("email = ?", email).First(&u).Error)
	return b, &u
}

func (a *app) cartRows(t *testing.T, userID uint) []models.CartItem {
	t.Helper()
	var items []models.CartItem
	require.NoError(t, a.db.Where("user_id = ?", userID).Find(&items).Error)
	return items
}

func (b *browser) flashes() string {
	b.t.Helper()
	return b.get("/about").Body.String()
}

func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("Origin", testOrigin)
	return req
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake image body")

// createProduct goes through the admin form so the stored image is real.
func createProduct(t *testing.T, admin *browser, title, price string) *models.Product {
	t.Helper()
	rec := admin.postMultipart("/add-product",
		url.Values{"title": {title}, "price": {price}, "delivery": {"2-3 days"}},
		title+".png", append(pngBytes, title...))
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	var p models.Product
	require.NoError(t, admin.app.db.Where("title = ?", title).First(&p).Error)
	return &p
}
