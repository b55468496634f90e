package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/":
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_source":{"id":3,"title":"Red mug"}},{"_source":{"id":1,"title":"Mug"}}]}}`))
	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/_doc/404"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func newTestIndex(t *testing.T) (*ESIndex, *fakeES) {
	t.Helper()
	f := &fakeES{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.URL, "", "")
	require.NoError(t, err)
	return &ESIndex{ES: client, Index: "products"}, f
}

func TestESIndex_IndexAndRemove(t *testing.T) {
	x, f := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.IndexProduct(ctx, &models.Product{ID: 5, Title: "Mug", Delivery: "fast", PriceCents: 999}))
	require.NoError(t, x.RemoveProduct(ctx, 5))
	require.NoError(t, x.RemoveProduct(ctx, 404))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.requests, "PUT /products/_doc/5")
	assert.Contains(t, f.requests, "DELETE /products/_doc/5")

	var doc Doc
	for i, r := range f.requests {
		if r == "PUT /products/_doc/5" {
			require.NoError(t, json.Unmarshal([]byte(f.bodies[i]), &doc))
		}
	}
	assert.Equal(t, "Mug", doc.Title)
	assert.EqualValues(t, 999, doc.PriceCents)
}

func TestESIndex_SearchReturnsIDsInRankOrder(t *testing.T) {
	x, f := newTestIndex(t)

	ids, err := x.SearchProducts(context.Background(), "mug", 20)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1}, ids)

	f.mu.Lock()
	defer f.mu.Unlock()
	last := f.bodies[len(f.bodies)-1]
	assert.Contains(t, last, `"multi_match"`)
	assert.Contains(t, last, `"mug"`)
}
