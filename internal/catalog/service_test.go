// ABOUTME: Tests for store setup and product management
// ABOUTME: Covers industry validation, one-store-per-merchant, product CRUD, and rendering

package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopyhq/shopy/internal/store"
)

func newTestCatalog(t *testing.T) (*Service, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	media, err := NewMediaStore(filepath.Join(t.TempDir(), "media"), 1<<20)
	require.NoError(t, err)

	return NewService(st, media, nil), st
}

func createMerchant(t *testing.T, st store.Store, id string) {
	t.Helper()
	require.NoError(t, st.CreateMerchant(context.Background(), &store.Merchant{
		ID:    id,
		Email: id + "@example.com",
	}))
}

func TestSetupStore(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	createMerchant(t, st, "m1")

	rec, err := svc.SetupStore(ctx, "m1", "  Kampala Crafts  ", []string{"Arts & Crafts", "Fashion & Apparel"})
	require.NoError(t, err)
	assert.Equal(t, "Kampala Crafts", rec.Name)
	assert.Equal(t, []string{"Arts & Crafts", "Fashion & Apparel"}, rec.Industries)

	got, err := svc.StoreByOwner(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestSetupStore_Validation(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	createMerchant(t, st, "m1")

	tests := []struct {
		name       string
		storeName  string
		industries []string
		wantErr    error
	}{
		{"blank name", "   ", []string{"Electronics"}, ErrStoreNameRequired},
		{"no industries", "Shop", nil, ErrIndustryCount},
		{"too many industries", "Shop",
			[]string{"Electronics", "Automotive", "Pet Supplies", "Books & Media"}, ErrIndustryCount},
		{"unknown industry", "Shop", []string{"Cryptocurrency"}, ErrUnknownIndustry},
		{"duplicate industry", "Shop", []string{"Electronics", "Electronics"}, ErrUnknownIndustry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetupStore(ctx, "m1", tt.storeName, tt.industries)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSetupStore_OnePerMerchant(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	createMerchant(t, st, "m1")

	_, err := svc.SetupStore(ctx, "m1", "First", []string{"Electronics"})
	require.NoError(t, err)

	_, err = svc.SetupStore(ctx, "m1", "Second", []string{"Electronics"})
	assert.ErrorIs(t, err, store.ErrStoreExists)
}

func setupStoreFor(t *testing.T, svc *Service, st store.Store, merchantID string) *store.StoreRecord {
	t.Helper()
	createMerchant(t, st, merchantID)
	rec, err := svc.SetupStore(context.Background(), merchantID, "Shop", []string{"Electronics"})
	require.NoError(t, err)
	return rec
}

func TestAddProduct(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	rec := setupStoreFor(t, svc, st, "m1")

	p, err := svc.AddProduct(ctx, rec.ID, ProductInput{
		Name:        " Solar Lamp ",
		Price:       "45,000",
		Description: "Bright **and** portable",
	})
	require.NoError(t, err)
	assert.Equal(t, "Solar Lamp", p.Name)
	assert.Equal(t, int64(4500000), p.PriceCents)
	assert.Empty(t, p.ImagePath)

	got, err := svc.Product(ctx, rec.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}

func TestAddProduct_Validation(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	rec := setupStoreFor(t, svc, st, "m1")

	_, err := svc.AddProduct(ctx, rec.ID, ProductInput{Name: "  ", Price: "100"})
	assert.ErrorIs(t, err, ErrProductNameRequired)

	_, err = svc.AddProduct(ctx, rec.ID, ProductInput{Name: "Lamp", Price: "free"})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestAddProduct_WithImage(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	rec := setupStoreFor(t, svc, st, "m1")

	p, err := svc.AddProduct(ctx, rec.ID, ProductInput{
		Name:      "Lamp",
		Price:     "100",
		ImageName: "lamp.png",
		Image:     strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ImagePath)

	f, err := svc.media.Open(p.ImagePath)
	require.NoError(t, err)
	f.Close()

	// Deleting the product removes the image too
	require.NoError(t, svc.DeleteProduct(ctx, rec.ID, p.ID))
	_, err = svc.media.Open(p.ImagePath)
	assert.Error(t, err)
}

func TestProducts_NewestFirst(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	rec := setupStoreFor(t, svc, st, "m1")

	for _, name := range []string{"First", "Second", "Third"} {
		_, err := svc.AddProduct(ctx, rec.ID, ProductInput{Name: name, Price: "100"})
		require.NoError(t, err)
	}

	products, err := svc.Products(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Third", products[0].Name)
}

func TestProduct_OwnershipEnforced(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()
	mine := setupStoreFor(t, svc, st, "m1")
	theirs := setupStoreFor(t, svc, st, "m2")

	p, err := svc.AddProduct(ctx, theirs.ID, ProductInput{Name: "Lamp", Price: "100"})
	require.NoError(t, err)

	_, err = svc.Product(ctx, mine.ID, p.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, mine.ID, p.ID), ErrNotOwner)

	_, err = svc.Product(ctx, mine.ID, "no-such-product")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRenderDescription(t *testing.T) {
	svc, _ := newTestCatalog(t)

	html := string(svc.RenderDescription("Bright **and** portable"))
	assert.Contains(t, html, "<strong>and</strong>")

	assert.Empty(t, string(svc.RenderDescription("")))

	// Raw HTML in descriptions is not passed through
	html = string(svc.RenderDescription(`<script>alert(1)</script>`))
	assert.NotContains(t, html, "<script>")
}

func TestValidIndustry(t *testing.T) {
	assert.True(t, ValidIndustry("Electronics"))
	assert.True(t, ValidIndustry("Fashion & Apparel"))
	assert.False(t, ValidIndustry("electronics"))
	assert.False(t, ValidIndustry(""))
	assert.Len(t, Industries, 15)
}
