package httpserver

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/forms"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/money"
	"github.com/Skotchmaster/storefront/internal/service"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

type productFormView struct {
	ID        uint
	Form      forms.ProductForm
	ImagePath string
	Errors    forms.Errors
}

// parseID treats anything but a positive integer as a missing record.
func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *CatalogHTTP) Home(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.home")

	items, err := h.Svc.List(ctx)
	if err != nil {
		l.Error("get_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return render(c, http.StatusOK, "home.html", "", items)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	q := c.QueryParam("q")
	items, err := h.Svc.Search(ctx, q)
	if err != nil {
		l.Error("search_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Render(http.StatusOK, "home.html", &Page{Title: "Search", Query: q, Data: items})
}

func (h *CatalogHTTP) Product(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, ok := parseID(c)
	if !ok {
		l.Warn("get_product_failed", "status", 404, "reason", "id is not a positive integer", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusNotFound)
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "reason", "product with this id does not exist", "error", err)
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("get_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return render(c, http.StatusOK, "product.html", p.Title, p)
}

func (h *CatalogHTTP) NewProductForm(c echo.Context) error {
	return render(c, http.StatusOK, "product_form.html", "Add product", productFormView{Errors: forms.Errors{}})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	view := productFormView{Errors: forms.Errors{}}
	in, upload, ok, err := h.bindProduct(c, &view, true)
	if err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	if !ok {
		l.Info("product_create_error", "status", 422, "reason", "validation failed")
		return render(c, http.StatusUnprocessableEntity, "product_form.html", "Add product", view)
	}
	defer upload.close()

	p, err := h.Svc.Create(ctx, auth.CurrentUser(c).ID, in, upload.value())
	if err != nil {
		var fe *service.FieldError
		if errors.As(err, &fe) {
			view.Errors.Add(fe.Field, fe.Message)
			l.Info("product_create_error", "status", 422, "reason", fe.Message)
			return render(c, http.StatusUnprocessableEntity, "product_form.html", "Add product", view)
		}
		l.Error("product_create_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	l.Info("product_create_success", "product_id", p.ID)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *CatalogHTTP) EditProductForm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.edit_form")

	id, ok := parseID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("get_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	view := productFormView{
		ID:        p.ID,
		ImagePath: p.ImagePath,
		Form: forms.ProductForm{
			Title:    p.Title,
			Price:    money.Format(p.PriceCents),
			Delivery: p.Delivery,
		},
		Errors: forms.Errors{},
	}
	return render(c, http.StatusOK, "product_form.html", "Edit product", view)
}

func (h *CatalogHTTP) EditProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.edit_product")

	id, ok := parseID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	current, err := h.Svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_update_error", "status", 404, "product_id", id)
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("product_update_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	view := productFormView{ID: id, ImagePath: current.ImagePath, Errors: forms.Errors{}}
	in, upload, ok, err := h.bindProduct(c, &view, false)
	if err != nil {
		l.Warn("product_update_error", "status", 400, "reason", "invalid form", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	if !ok {
		return render(c, http.StatusUnprocessableEntity, "product_form.html", "Edit product", view)
	}
	defer upload.close()

	if _, err := h.Svc.Update(ctx, id, in, upload.value()); err != nil {
		var fe *service.FieldError
		switch {
		case errors.As(err, &fe):
			view.Errors.Add(fe.Field, fe.Message)
			return render(c, http.StatusUnprocessableEntity, "product_form.html", "Edit product", view)
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound)
		default:
			l.Error("product_update_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
	}

	l.Info("product_update_success", "product_id", id)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, ok := parseID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_delete_error", "status", 404, "product_id", id)
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("product_delete_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	l.Info("product_delete_success", "product_id", id)
	return c.Redirect(http.StatusSeeOther, "/")
}

type openedUpload struct {
	name string
	file multipart.File
}

func (u *openedUpload) value() *service.Upload {
	if u == nil {
		return nil
	}
	return &service.Upload{Filename: u.name, Body: u.file}
}

func (u *openedUpload) close() {
	if u != nil {
		_ = u.file.Close()
	}
}

// bindProduct fills view with the submitted values and field errors. ok is
// false when the form must be re-rendered.
func (h *CatalogHTTP) bindProduct(c echo.Context, view *productFormView, imageRequired bool) (service.ProductInput, *openedUpload, bool, error) {
	var f forms.ProductForm
	if err := c.Bind(&f); err != nil {
		return service.ProductInput{}, nil, false, err
	}
	errs := forms.Validate(&f)
	view.Form = f

	fh, err := c.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			return service.ProductInput{}, nil, false, err
		}
		fh = nil
	}
	if msg := forms.CheckImage(fh, imageRequired); msg != "" {
		errs.Add("image", msg)
	}
	if errs.Any() {
		view.Errors = errs
		return service.ProductInput{}, nil, false, nil
	}

	var upload *openedUpload
	if fh != nil && fh.Filename != "" {
		file, err := fh.Open()
		if err != nil {
			return service.ProductInput{}, nil, false, err
		}
		upload = &openedUpload{name: fh.Filename, file: file}
	}
	in := service.ProductInput{Title: f.Title, PriceCents: f.PriceCents(), Delivery: f.Delivery}
	return in, upload, true, nil
}
