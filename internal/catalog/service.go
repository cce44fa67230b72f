// ABOUTME: Store setup and product management service
// ABOUTME: Validates storefront and product input, renders Markdown descriptions

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/shopyhq/shopy/internal/store"
)

var (
	// ErrStoreNameRequired is returned when the storefront name is blank.
	ErrStoreNameRequired = errors.New("store name is required")
	// ErrIndustryCount is returned when the industry selection is empty or
	// over the cap.
	ErrIndustryCount = fmt.Errorf("select between 1 and %d industries", MaxIndustries)
	// ErrUnknownIndustry is returned for an industry outside the fixed list.
	ErrUnknownIndustry = errors.New("unknown industry")
	// ErrProductNameRequired is returned when the product name is blank.
	ErrProductNameRequired = errors.New("product name is required")
	// ErrNotOwner is returned when a merchant operates on another store's
	// product.
	ErrNotOwner = errors.New("product belongs to another store")
)

// Service implements storefront and product operations on top of the store.
type Service struct {
	store  store.Store
	media  *MediaStore
	logger *slog.Logger
}

// NewService creates a catalog service. media may be nil when image uploads
// are disabled. Pass nil logger for default.
func NewService(st store.Store, media *MediaStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		media:  media,
		logger: logger.With("component", "catalog"),
	}
}

// SetupStore creates the merchant's storefront. Each merchant gets exactly
// one store; a second attempt returns store.ErrStoreExists.
func (s *Service) SetupStore(ctx context.Context, ownerID, name string, industries []string) (*store.StoreRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrStoreNameRequired
	}
	if len(industries) == 0 || len(industries) > MaxIndustries {
		return nil, ErrIndustryCount
	}
	seen := make(map[string]bool, len(industries))
	for _, ind := range industries {
		if !ValidIndustry(ind) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIndustry, ind)
		}
		if seen[ind] {
			return nil, fmt.Errorf("%w: duplicate %s", ErrUnknownIndustry, ind)
		}
		seen[ind] = true
	}

	rec := &store.StoreRecord{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Name:       name,
		Industries: industries,
		CreatedAt:  time.Now(),
	}
	if err := s.store.CreateStore(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("store created", "store_id", rec.ID, "owner_id", ownerID, "name", name)
	return rec, nil
}

// StoreByOwner returns the merchant's storefront, or store.ErrNotFound.
func (s *Service) StoreByOwner(ctx context.Context, ownerID string) (*store.StoreRecord, error) {
	return s.store.GetStoreByOwner(ctx, ownerID)
}

// ProductInput is the raw form input for creating a product.
type ProductInput struct {
	Name        string
	Price       string // as entered, parsed to cents
	Description string // Markdown
	ImageName   string // original filename, empty when no upload
	Image       io.Reader
}

// AddProduct validates input, stores the image when present, and creates
// the product.
func (s *Service) AddProduct(ctx context.Context, storeID string, in ProductInput) (*store.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrProductNameRequired
	}
	cents, err := ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}

	imagePath := ""
	if in.Image != nil && in.ImageName != "" {
		if s.media == nil {
			return nil, ErrUnsupportedImage
		}
		imagePath, err = s.media.Save(in.ImageName, in.Image)
		if err != nil {
			return nil, err
		}
	}

	p := &store.Product{
		ID:          uuid.New().String(),
		StoreID:     storeID,
		Name:        name,
		PriceCents:  cents,
		Description: strings.TrimSpace(in.Description),
		ImagePath:   imagePath,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		if imagePath != "" {
			_ = s.media.Remove(imagePath)
		}
		return nil, err
	}

	s.logger.Info("product added", "product_id", p.ID, "store_id", storeID, "name", name)
	return p, nil
}

// Products lists a store's products, newest first.
func (s *Service) Products(ctx context.Context, storeID string) ([]*store.Product, error) {
	return s.store.ListProductsByStore(ctx, storeID)
}

// Product fetches one product and verifies it belongs to storeID.
func (s *Service) Product(ctx context.Context, storeID, productID string) (*store.Product, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.StoreID != storeID {
		return nil, ErrNotOwner
	}
	return p, nil
}

// DeleteProduct removes a product and its stored image.
func (s *Service) DeleteProduct(ctx context.Context, storeID, productID string) error {
	p, err := s.Product(ctx, storeID, productID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, p.ID); err != nil {
		return err
	}
	if p.ImagePath != "" && s.media != nil {
		if err := s.media.Remove(p.ImagePath); err != nil {
			s.logger.Warn("removing product image", "product_id", p.ID, "error", err)
		}
	}
	s.logger.Info("product deleted", "product_id", p.ID, "store_id", storeID)
	return nil
}

// RenderDescription converts a product's Markdown description to HTML.
// Render failures degrade to the escaped plain text.
func (s *Service) RenderDescription(md string) template.HTML {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		s.logger.Error("rendering product description", "error", err)
		return template.HTML("<p>" + template.HTMLEscapeString(md) + "</p>")
	}
	return template.HTML(buf.String())
}
