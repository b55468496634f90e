// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/models"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func CreateUser(t testing.TB, gdb *gorm.DB, email, role string) *models.User {
	t.Helper()

	u := &models.User{Email: email, Name: email, PasswordHash: "x", Role: role}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProduct(t testing.TB, gdb *gorm.DB, ownerID uint, title string, priceCents int64) *models.Product {
	t.Helper()

	p := &models.Product{
		Title:      title,
		PriceCents: priceCents,
		Delivery:   "2-3 days",
		ImagePath:  "/uploads/" + title + ".png",
		UserID:     ownerID,
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}
