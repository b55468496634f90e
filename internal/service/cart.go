package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/money"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type CartLine struct {
	Item      models.CartItem
	LineCents int64
}

type CartView struct {
	Lines      []CartLine
	TotalCents int64
	Count      int
}

func (v *CartView) Empty() bool { return len(v.Lines) == 0 }

func (v *CartView) Total() string { return money.Format(v.TotalCents) }

type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) Add(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	item, err := s.Repo.AddToCart(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	events.Emit(ctx, s.Events, events.CartItemAdded, userID, map[string]any{
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})
	return item, nil
}

// View totals the cart in integer cents.
func (s *CartService) View(ctx context.Context, userID uint) (*CartView, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	v := &CartView{Lines: make([]CartLine, 0, len(items))}
	for _, it := range items {
		line := money.LineTotal(it.Product.PriceCents, it.Quantity)
		v.Lines = append(v.Lines, CartLine{Item: it, LineCents: line})
		v.TotalCents += line
		v.Count += it.Quantity
	}
	return v, nil
}

func (s *CartService) Count(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.CountCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uint, reason string) error {
	n, err := s.Repo.DeleteAllFromCart(ctx, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	events.Emit(ctx, s.Events, events.CartCleared, userID, map[string]any{
		"userID": userID,
		"reason": reason,
		"lines":  n,
	})
	return nil
}
