// Package catalog manages master products and the sellers' listings of them.
package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

type Store interface {
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	ListProducts(ctx context.Context, skip, limit int) ([]ProductView, error)
	GetProduct(ctx context.Context, id int64) (ProductView, error)
	ListingExists(ctx context.Context, sellerID, productID int64) (bool, error)
	InsertListing(ctx context.Context, sellerID int64, in ListingInput) (Listing, error)
	ListingsBySeller(ctx context.Context, sellerID int64) ([]ListingView, error)
}

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (ProductView, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ProductView{}, apperr.New(apperr.KindInvalidInput, "product name is required")
	}
	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return ProductView{}, err
	}
	s.log.Info("product created", zap.Int64("product_id", p.ID), zap.String("name", p.Name))
	return ProductView{Product: p, Sellers: []Listing{}}, nil
}

// ListProducts pages through the catalog. A non-positive limit falls back to
// DefaultLimit and larger limits are capped at MaxLimit.
func (s *Service) ListProducts(ctx context.Context, skip, limit int) ([]ProductView, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return s.store.ListProducts(ctx, skip, limit)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (ProductView, error) {
	return s.store.GetProduct(ctx, id)
}

// AddListing creates the seller's offer for a product. One listing per
// seller per product.
func (s *Service) AddListing(ctx context.Context, sellerID int64, in ListingInput) (ListingView, error) {
	switch {
	case in.ProductID <= 0:
		return ListingView{}, apperr.New(apperr.KindInvalidInput, "product_id must be positive")
	case in.Price < 0:
		return ListingView{}, apperr.New(apperr.KindInvalidInput, "price must not be negative")
	case in.Quantity < 0:
		return ListingView{}, apperr.New(apperr.KindInvalidInput, "quantity must not be negative")
	}

	dup, err := s.store.ListingExists(ctx, sellerID, in.ProductID)
	if err != nil {
		return ListingView{}, err
	}
	if dup {
		return ListingView{}, apperr.New(apperr.KindConflict, "seller %d already lists product %d", sellerID, in.ProductID)
	}

	product, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return ListingView{}, err
	}

	// the unique constraint still guards a concurrent duplicate
	l, err := s.store.InsertListing(ctx, sellerID, in)
	if err != nil {
		return ListingView{}, err
	}
	s.log.Info("listing added",
		zap.Int64("listing_id", l.ID),
		zap.Int64("seller_id", sellerID),
		zap.Int64("product_id", in.ProductID),
		zap.Int("quantity", l.Quantity),
	)
	return ListingView{
		Listing: l,
		Product: ProductSummary{ID: product.ID, Name: product.Name, Description: product.Description},
	}, nil
}

func (s *Service) SellerInventory(ctx context.Context, sellerID int64) ([]ListingView, error) {
	return s.store.ListingsBySeller(ctx, sellerID)
}
