package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/money"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

// LockListing: SELECT ... FOR UPDATE, row tetap ter-lock sampai commit/rollback.
func (t *pgTx) LockListing(ctx context.Context, listingID int64) (catalog.Listing, error) {
	var (
		l     catalog.Listing
		cents int64
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, seller_id, product_id, price_cents, quantity
		FROM seller_products WHERE id=$1 FOR UPDATE`, listingID,
	).Scan(&l.ID, &l.SellerID, &l.ProductID, &cents, &l.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Listing{}, apperr.New(apperr.KindNotFound, "listing %d not found", listingID)
	}
	if err != nil {
		return catalog.Listing{}, fmt.Errorf("lock listing %d: %w", listingID, err)
	}
	l.Price = money.FromCents(cents)
	return l, nil
}

func (t *pgTx) AdjustListingQuantity(ctx context.Context, listingID int64, delta int) (int, error) {
	var left int
	err := t.tx.QueryRow(ctx, `
		UPDATE seller_products SET quantity = quantity + $2, updated_at = NOW()
		WHERE id=$1
		RETURNING quantity`, listingID, delta).Scan(&left)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return 0, apperr.New(apperr.KindNotFound, "listing %d not found", listingID)
	case postgres.IsCheckViolation(err):
		// quantity >= 0 constraint; only reachable if the row was not locked first
		return 0, apperr.New(apperr.KindInsufficientStock, "insufficient stock for listing %d", listingID)
	case err != nil:
		return 0, fmt.Errorf("adjust listing %d: %w", listingID, err)
	}
	return left, nil
}
