package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/models"
)

func newRepo(t *testing.T) *GormRepo {
	return &GormRepo{DB: dbtest.New(t)}
}

func TestCreateUser_FirstIsAdmin(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	first := &models.User{Email: "owner@shop.test", Name: "Owner", PasswordHash: "h"}
	require.NoError(t, r.CreateUser(ctx, first))
	assert.Equal(t, models.RoleAdmin, first.Role)

	second := &models.User{Email: "guest@shop.test", Name: "Guest", PasswordHash: "h"}
	require.NoError(t, r.CreateUser(ctx, second))
	assert.Equal(t, models.RoleUser, second.Role)

	dup := &models.User{Email: "guest@shop.test", Name: "Again", PasswordHash: "h"}
	assert.ErrorIs(t, r.CreateUser(ctx, dup), gorm.ErrDuplicatedKey)

	var n int64
	require.NoError(t, r.DB.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestCreateUser_ConcurrentFirstRegistrationsOneAdmin(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("user%d@shop.test", i)
			errs <- r.CreateUser(ctx, &models.User{Email: email, Name: email, PasswordHash: "h"})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var admins []models.User
	require.NoError(t, r.DB.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)

	var minID uint
	require.NoError(t, r.DB.Model(&models.User{}).Select("MIN(id)").Scan(&minID).Error)
	assert.Equal(t, minID, admins[0].ID)
}

func TestSetUserRole(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleUser)

	require.NoError(t, r.SetUserRole(ctx, "A@shop.test", models.RoleAdmin))
	u, err := r.GetUserByEmail(ctx, "a@shop.test")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	assert.ErrorIs(t, r.SetUserRole(ctx, "missing@shop.test", models.RoleAdmin), gorm.ErrRecordNotFound)
}

func TestAddToCart_IncrementsSingleRow(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleUser)
	p := dbtest.CreateProduct(t, r.DB, u.ID, "Mug", 999)

	item, err := r.AddToCart(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)

	item, err = r.AddToCart(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	var rows []models.CartItem
	require.NoError(t, r.DB.Where("user_id = ? AND product_id = ?", u.ID, p.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)
}

func TestAddToCart_ConcurrentAddsCollapse(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleUser)
	p := dbtest.CreateProduct(t, r.DB, u.ID, "Mug", 999)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.AddToCart(ctx, u.ID, p.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var rows []models.CartItem
	require.NoError(t, r.DB.Where("user_id = ?", u.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, n, rows[0].Quantity)
}

func TestCartCountAndClear(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleUser)
	other := dbtest.CreateUser(t, r.DB, "b@shop.test", models.RoleUser)
	p1 := dbtest.CreateProduct(t, r.DB, u.ID, "Mug", 999)
	p2 := dbtest.CreateProduct(t, r.DB, u.ID, "Tee", 450)

	for _, pid := range []uint{p1.ID, p1.ID, p2.ID} {
		_, err := r.AddToCart(ctx, u.ID, pid)
		require.NoError(t, err)
	}
	_, err := r.AddToCart(ctx, other.ID, p1.ID)
	require.NoError(t, err)

	n, err := r.CountCart(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	items, err := r.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Mug", items[0].Product.Title)

	deleted, err := r.DeleteAllFromCart(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	n, err = r.CountCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = r.CountCart(ctx, other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDeleteProduct_CascadesCartItems(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleAdmin)
	p := dbtest.CreateProduct(t, r.DB, u.ID, "Mug", 999)
	keep := dbtest.CreateProduct(t, r.DB, u.ID, "Tee", 450)

	_, err := r.AddToCart(ctx, u.ID, p.ID)
	require.NoError(t, err)
	_, err = r.AddToCart(ctx, u.ID, keep.ID)
	require.NoError(t, err)

	require.NoError(t, r.DeleteProduct(ctx, p.ID))

	var orphans int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Where("product_id = ?", p.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	_, err = r.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	assert.ErrorIs(t, r.DeleteProduct(ctx, p.ID), gorm.ErrRecordNotFound)

	n, err := r.CountCart(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestProductLookups(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	u := dbtest.CreateUser(t, r.DB, "a@shop.test", models.RoleAdmin)
	mug := dbtest.CreateProduct(t, r.DB, u.ID, "Red Mug", 999)
	tee := dbtest.CreateProduct(t, r.DB, u.ID, "Tee_100%", 450)

	got, err := r.GetProductsByIDs(ctx, []uint{tee.ID, 999, mug.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tee.ID, got[0].ID)
	assert.Equal(t, mug.ID, got[1].ID)

	found, err := r.SearchProductsByTitle(ctx, "mug", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, mug.ID, found[0].ID)

	found, err = r.SearchProductsByTitle(ctx, "_100%", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, tee.ID, found[0].ID)

	taken, err := r.TitleTaken(ctx, "Red Mug", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = r.TitleTaken(ctx, "Red Mug", mug.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	n, err := r.CountProductsWithImage(ctx, mug.ImagePath)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := r.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
