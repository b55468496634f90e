// Package forms binds and validates the HTML forms of the storefront.
package forms

import (
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/storefront/internal/money"
	"github.com/Skotchmaster/storefront/internal/storage"
)

var AllowedImageExt = []string{"jpg", "jpeg", "png", "webp", "avif"}

const (
	msgRequired   = "This field is required."
	msgImagesOnly = "Images only!"
)

type RegisterForm struct {
	Email    string `form:"email"    validate:"required,email,max=100"`
	Password string `form:"password" validate:"required,max=72"`
	Name     string `form:"name"     validate:"required,max=100"`
}

type LoginForm struct {
	Email    string `form:"email"    validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type ProductForm struct {
	Title    string `form:"title"    validate:"required,max=250"`
	Price    string `form:"price"    validate:"required,price"`
	Delivery string `form:"delivery" validate:"required,max=250"`
}

func (f *ProductForm) PriceCents() int64 {
	cents, _ := money.ParseCents(f.Price)
	return cents
}

// Errors maps a form field name to its message.
type Errors map[string]string

func (e Errors) Any() bool { return len(e) > 0 }

func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		_, err := money.ParseCents(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate trims string fields in place and returns per-field messages.
func Validate(form any) Errors {
	trimStrings(form)

	errs := Errors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return "Invalid email address."
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "price":
		return priceMessage(fe.Value())
	default:
		return "Invalid value."
	}
}

func priceMessage(v any) string {
	s, _ := v.(string)
	_, err := money.ParseCents(s)
	switch {
	case errors.Is(err, money.ErrNegative):
		return "Price cannot be negative."
	case errors.Is(err, money.ErrPrecision):
		return "Use at most two decimal places."
	case errors.Is(err, money.ErrTooLarge):
		return "Price is too large."
	default:
		return "Enter a price like 9.99."
	}
}

// CheckImage validates an optional or required upload against the
// allowed image extensions. It returns "" when the upload is acceptable.
func CheckImage(fh *multipart.FileHeader, required bool) string {
	if fh == nil || fh.Filename == "" {
		if required {
			return msgRequired
		}
		return ""
	}
	ext := storage.CleanExt(fh.Filename)
	for _, ok := range AllowedImageExt {
		if ext == ok {
			return ""
		}
	}
	return msgImagesOnly
}

func trimStrings(form any) {
	v := reflect.ValueOf(form)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() && v.Type().Field(i).Tag.Get("form") != "password" {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
