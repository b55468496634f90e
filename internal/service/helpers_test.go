package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/db/dbtest"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/storage"
)

func init() {
	hash.Cost = bcrypt.MinCost
}

type recordedEvents struct {
	mu     sync.Mutex
	events []map[string]any
}

func (r *recordedEvents) PublishEvent(_ context.Context, _ string, event map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordedEvents) Close() error { return nil }

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e["type"].(string))
	}
	return out
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
	return &payment.Session{ID: "cs_test", URL: "https://pay.test/cs_test", ClientReferenceID: req.ClientReferenceID}, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such checkout session")
}

type fakeIndex struct {
	indexed map[uint]string
	removed []uint
	hits    []uint
	err     error
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[uint]string{}} }

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed[p.ID] = p.Title
	return nil
}

func (f *fakeIndex) RemoveProduct(_ context.Context, id uint) error {
	f.removed = append(f.removed, id)
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndex) SearchProducts(context.Context, string, int) ([]uint, error) {
	return f.hits, f.err
}

type fixture struct {
	repo     *repo.GormRepo
	events   *recordedEvents
	store    *storage.LocalStore
	index    *fakeIndex
	payments *fakeProcessor

	auth     *AuthService
	catalog  *CatalogService
	cart     *CartService
	checkout *CheckoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := &repo.GormRepo{DB: dbtest.New(t)}
	ev := &recordedEvents{}
	store, err := storage.NewLocal(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	idx := newFakeIndex()
	pay := &fakeProcessor{sessions: map[string]*payment.Session{}}

	cart := &CartService{Repo: r, Events: ev}
	return &fixture{
		repo:     r,
		events:   ev,
		store:    store,
		index:    idx,
		payments: pay,
		auth:     &AuthService{Repo: r, Events: ev, Secret: []byte("test-secret")},
		catalog:  &CatalogService{Repo: r, Store: store, Index: idx, Events: ev},
		cart:     cart,
		checkout: &CheckoutService{
			Cart:     cart,
			Payments: pay,
			Events:   ev,
			BaseURL:  "http://shop.test",
			Currency: "usd",
		},
	}
}
