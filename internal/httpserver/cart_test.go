package httpserver

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCart_TwiceIncrementsOneRow(t *testing.T) {
	a := newApp(t)
	admin, _ := a.loggedIn(t, "admin@example.com")
	p := createProduct(t, admin, "Pen", "1.25")

	b, u := a.loggedIn(t, "bob@example.com")
	for i := 0; i < 2; i++ {
		rec := b.get(fmt.Sprintf("/add-to-cart/%d", p.ID))
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	}

	rows := a.cartRows(t, u.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Added to cart!")
	assert.Contains(t, body, "Cart (2)")
}

func TestAddToCart_MissingProduct(t *testing.T) {
	a := newApp(t)
	b, u := a.loggedIn(t, "alice@example.com")

	assert.Equal(t, http.StatusNotFound, b.get("/add-to-cart/42").Code)
	assert.Equal(t, http.StatusNotFound, b.get("/add-to-cart/x").Code)
	assert.Empty(t, a.cartRows(t, u.ID))
}

func TestViewCart_TotalIsExact(t *testing.T) {
	a := newApp(t)
	admin, _ := a.loggedIn(t, "admin@example.com")
	mug := createProduct(t, admin, "Mug", "9.99")
	tea := createProduct(t, admin, "Tea", "4.50")

	b, _ := a.loggedIn(t, "bob@example.com")
	b.get(fmt.Sprintf("/add-to-cart/%d", mug.ID))
	b.get(fmt.Sprintf("/add-to-cart/%d", mug.ID))
	b.get(fmt.Sprintf("/add-to-cart/%d", tea.ID))

	rec := b.get("/view-cart")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<td class="total">$24.48</td>`)
	assert.Contains(t, body, "$19.98")
}

func TestViewCart_Empty(t *testing.T) {
	a := newApp(t)
	b, _ := a.loggedIn(t, "alice@example.com")

	rec := b.get("/view-cart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your cart is empty.")
}
