package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, in catalog.ProductInput) (catalog.ProductView, error)
	ListProducts(ctx context.Context, skip, limit int) ([]catalog.ProductView, error)
	GetProduct(ctx context.Context, id int64) (catalog.ProductView, error)
	AddListing(ctx context.Context, sellerID int64, in catalog.ListingInput) (catalog.ListingView, error)
	SellerInventory(ctx context.Context, sellerID int64) ([]catalog.ListingView, error)
}

type CatalogHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
	Timeout time.Duration
}

func (h *CatalogHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{product_id}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.With(RequireRoles(auth.RoleAdmin)).Post("/products", h.createProduct)
		r.With(RequireRoles(auth.RoleSeller)).Post("/seller/inventory", h.addListing)
		r.With(RequireRoles(auth.RoleSeller)).Get("/seller/inventory", h.sellerInventory)
	})
}

func (h *CatalogHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 3 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	limit, err := queryInt(r, "limit", catalog.DefaultLimit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx, skip, limit)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product_id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in catalog.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) addListing(w http.ResponseWriter, r *http.Request) {
	var in catalog.ListingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	l, err := h.Catalog.AddListing(ctx, identity(r).UserID, in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *CatalogHandler) sellerInventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	ls, err := h.Catalog.SellerInventory(ctx, identity(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ls)
}
