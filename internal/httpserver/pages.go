package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func staticPage(name, title string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return render(c, http.StatusOK, name, title, nil)
	}
}
