package httpserver

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/flash"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/money"
)

// Page is the value every template executes against.
type Page struct {
	Title     string
	User      *models.User
	CartCount int64
	Flashes   []flash.Notice
	CSRF      string
	Query     string
	Data      any
}

type CartCounter interface {
	Count(ctx context.Context, userID uint) (int64, error)
}

type Renderer struct {
	pages map[string]*template.Template
	Cart  CartCounter
}

var funcs = template.FuncMap{
	"money": money.Format,
}

// NewRenderer parses layout.html once and every other template on top of a
// clone of it.
func NewRenderer(fsys fs.FS, cart CartCounter) (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names)), Cart: cart}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t, err := template.Must(layout.Clone()).ParseFS(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	p, ok := data.(*Page)
	if !ok {
		p = &Page{Data: data}
	}
	p.User = auth.CurrentUser(c)
	p.Flashes = flash.Pop(c)
	p.CSRF = csrf.Token(c)
	if p.User != nil && r.Cart != nil {
		n, err := r.Cart.Count(c.Request().Context(), p.User.ID)
		if err != nil {
			logging.FromContext(c.Request().Context()).Warn("cart_count_error", "error", err)
		}
		p.CartCount = n
	}
	return t.ExecuteTemplate(w, "layout", p)
}

func render(c echo.Context, code int, name, title string, data any) error {
	return c.Render(code, name, &Page{Title: title, Data: data})
}

type errorPage struct {
	Code int
	Text string
}

// HTTPErrorHandler renders a small HTML page carrying only the status text.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	text := http.StatusText(code)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if c.Echo().Renderer != nil {
		if rerr := render(c, code, "error.html", text, errorPage{Code: code, Text: text}); rerr == nil {
			return
		}
	}
	_ = c.String(code, text)
}
