package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/storage"
)

const searchLimit = 50

type ProductInput struct {
	Title      string
	PriceCents int64
	Delivery   string
}

type Upload struct {
	Filename string
	Body     io.Reader
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Store  storage.Store
	Index  search.Index
	Events events.Publisher
}

func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// Search uses the search index when one is configured and falls back to
// a title match in the database.
func (s *CatalogService) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.List(ctx)
	}
	if s.Index != nil {
		ids, err := s.Index.SearchProducts(ctx, q, searchLimit)
		if err == nil {
			return s.Repo.GetProductsByIDs(ctx, ids)
		}
		logging.FromContext(ctx).Warn("search_index_error", "reason", "falling back to database", "error", err)
	}
	return s.Repo.SearchProductsByTitle(ctx, q, searchLimit)
}

func (s *CatalogService) Create(ctx context.Context, ownerID uint, in ProductInput, img *Upload) (*models.Product, error) {
	if err := s.checkInput(ctx, in, 0); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, &FieldError{Field: "image", Message: "This field is required."}
	}

	path, err := s.saveImage(ctx, img)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		Title:      in.Title,
		PriceCents: in.PriceCents,
		Delivery:   in.Delivery,
		ImagePath:  path,
		UserID:     ownerID,
	}
	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		s.releaseImage(ctx, path)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, titleTaken()
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.index(ctx, p)
	events.Emit(ctx, s.Events, events.ProductCreated, p.ID, map[string]any{
		"productID":  p.ID,
		"title":      p.Title,
		"priceCents": p.PriceCents,
		"userID":     ownerID,
	})
	return p, nil
}

// Update overwrites title, price and delivery; the image changes only when
// a new one is uploaded.
func (s *CatalogService) Update(ctx context.Context, id uint, in ProductInput, img *Upload) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkInput(ctx, in, id); err != nil {
		return nil, err
	}

	oldImage := p.ImagePath
	if img != nil {
		path, err := s.saveImage(ctx, img)
		if err != nil {
			return nil, err
		}
		p.ImagePath = path
	}
	p.Title = in.Title
	p.PriceCents = in.PriceCents
	p.Delivery = in.Delivery

	if err := s.Repo.SaveProduct(ctx, p); err != nil {
		if p.ImagePath != oldImage {
			s.releaseImage(ctx, p.ImagePath)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, titleTaken()
		}
		return nil, fmt.Errorf("save product: %w", err)
	}

	if oldImage != p.ImagePath {
		s.releaseImage(ctx, oldImage)
	}
	s.index(ctx, p)
	events.Emit(ctx, s.Events, events.ProductUpdated, p.ID, map[string]any{
		"productID":  p.ID,
		"title":      p.Title,
		"priceCents": p.PriceCents,
	})
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete product: %w", err)
	}

	s.releaseImage(ctx, p.ImagePath)
	if s.Index != nil {
		if err := s.Index.RemoveProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_remove_error", "product_id", id, "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.ProductDeleted, id, map[string]any{"productID": id})
	return nil
}

// Reindex pushes every product into the search index.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, errors.New("search index is not configured")
	}
	items, err := s.Repo.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	for i := range items {
		if err := s.Index.IndexProduct(ctx, &items[i]); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

func (s *CatalogService) checkInput(ctx context.Context, in ProductInput, exceptID uint) error {
	if strings.TrimSpace(in.Title) == "" {
		return &FieldError{Field: "title", Message: "This field is required."}
	}
	if in.PriceCents < 0 {
		return &FieldError{Field: "price", Message: "Price cannot be negative."}
	}
	taken, err := s.Repo.TitleTaken(ctx, in.Title, exceptID)
	if err != nil {
		return fmt.Errorf("check title: %w", err)
	}
	if taken {
		return titleTaken()
	}
	return nil
}

func titleTaken() error {
	return &FieldError{Field: "title", Message: "A product with that title already exists."}
}

func (s *CatalogService) saveImage(ctx context.Context, img *Upload) (string, error) {
	path, err := storage.SaveImage(ctx, s.Store, img.Filename, img.Body)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) {
			return "", &FieldError{Field: "image", Message: "The uploaded file is empty."}
		}
		return "", fmt.Errorf("save image: %w", err)
	}
	return path, nil
}

// releaseImage deletes a stored image once no product points at it.
// Identical uploads share one file.
func (s *CatalogService) releaseImage(ctx context.Context, path string) {
	prefix := s.Store.URL("")
	if path == "" || !strings.HasPrefix(path, prefix) {
		return
	}
	l := logging.FromContext(ctx)
	n, err := s.Repo.CountProductsWithImage(ctx, path)
	if err != nil {
		l.Warn("image_release_error", "path", path, "error", err)
		return
	}
	if n > 0 {
		return
	}
	if err := s.Store.Delete(ctx, strings.TrimPrefix(path, prefix)); err != nil {
		l.Warn("image_release_error", "path", path, "error", err)
	}
}

func (s *CatalogService) index(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}
