package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/money"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	p := Product{Name: in.Name, Description: in.Description, ImageURL: in.ImageURL}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(name, description, image_url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, in.Name, in.Description, in.ImageURL).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context, skip, limit int) ([]ProductView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, image_url, created_at
		FROM products ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return []ProductView{}, nil
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	listings, err := r.listingsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ProductView, len(products))
	for i, p := range products {
		out[i] = ProductView{Product: p, Sellers: nonNil(listings[p.ID])}
	}
	return out, nil
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (ProductView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, image_url, created_at
		FROM products WHERE id=$1`, id)
	if err != nil {
		return ProductView{}, fmt.Errorf("get product: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductView{}, apperr.New(apperr.KindNotFound, "product %d not found", id)
	}
	if err != nil {
		return ProductView{}, fmt.Errorf("get product: %w", err)
	}

	listings, err := r.listingsFor(ctx, []int64{id})
	if err != nil {
		return ProductView{}, err
	}
	return ProductView{Product: p, Sellers: nonNil(listings[id])}, nil
}

func (r *Repo) ListingExists(ctx context.Context, sellerID, productID int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM seller_products WHERE seller_id=$1 AND product_id=$2)`,
		sellerID, productID).Scan(&ok)
	return ok, err
}

func (r *Repo) InsertListing(ctx context.Context, sellerID int64, in ListingInput) (Listing, error) {
	l := Listing{SellerID: sellerID, ProductID: in.ProductID, Price: in.Price, Quantity: in.Quantity}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO seller_products(seller_id, product_id, price_cents, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, sellerID, in.ProductID, in.Price.Cents(), in.Quantity).Scan(&l.ID)
	switch {
	case postgres.IsUniqueViolation(err):
		return Listing{}, apperr.New(apperr.KindConflict, "seller %d already lists product %d", sellerID, in.ProductID)
	case postgres.IsForeignKeyViolation(err):
		return Listing{}, apperr.New(apperr.KindNotFound, "product %d or seller %d not found", in.ProductID, sellerID)
	case err != nil:
		return Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	return l, nil
}

func (r *Repo) ListingsBySeller(ctx context.Context, sellerID int64) ([]ListingView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT sp.id, sp.seller_id, sp.product_id, sp.price_cents, sp.quantity,
		       p.id, p.name, p.description
		FROM seller_products sp
		JOIN products p ON p.id = sp.product_id
		WHERE sp.seller_id=$1
		ORDER BY sp.id`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller listings: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ListingView, error) {
		var (
			v     ListingView
			cents int64
		)
		err := row.Scan(&v.ID, &v.SellerID, &v.ProductID, &cents, &v.Quantity,
			&v.Product.ID, &v.Product.Name, &v.Product.Description)
		v.Price = money.FromCents(cents)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("seller listings: %w", err)
	}
	return nonNil(out), nil
}

func (r *Repo) listingsFor(ctx context.Context, productIDs []int64) (map[int64][]Listing, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, seller_id, product_id, price_cents, quantity
		FROM seller_products WHERE product_id = ANY($1)
		ORDER BY product_id, price_cents, id`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("product listings: %w", err)
	}
	listings, err := pgx.CollectRows(rows, scanListing)
	if err != nil {
		return nil, fmt.Errorf("product listings: %w", err)
	}
	out := make(map[int64][]Listing, len(productIDs))
	for _, l := range listings {
		out[l.ProductID] = append(out[l.ProductID], l)
	}
	return out, nil
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.CreatedAt)
	return p, err
}

// scanListing reads id, seller_id, product_id, price_cents, quantity.
func scanListing(row pgx.CollectableRow) (Listing, error) {
	var (
		l     Listing
		cents int64
	)
	err := row.Scan(&l.ID, &l.SellerID, &l.ProductID, &cents, &l.Quantity)
	l.Price = money.FromCents(cents)
	return l, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
