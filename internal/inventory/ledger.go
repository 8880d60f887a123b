// Package inventory owns listing stock: a listing's quantity only moves
// through CheckAndReserve and Release, always inside the caller's transaction.
package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
)

// Tx is the slice of a database transaction the ledger needs.
type Tx interface {
	// LockListing reads the listing row and holds its lock until the
	// transaction ends. Missing rows are reported as apperr NotFound.
	LockListing(ctx context.Context, listingID int64) (catalog.Listing, error)
	// AdjustListingQuantity adds delta to the quantity and returns the new value.
	AdjustListingQuantity(ctx context.Context, listingID int64, delta int) (int, error)
}

type Ledger struct {
	log *zap.Logger
}

func NewLedger(log *zap.Logger) *Ledger {
	return &Ledger{log: log}
}

// CheckAndReserve locks the listing, checks it belongs to sellerID and has at
// least quantity units, then decrements it. The returned snapshot reflects
// the decrement. Nothing is visible to others until tx commits.
func (l *Ledger) CheckAndReserve(ctx context.Context, tx Tx, listingID, sellerID int64, quantity int) (catalog.Listing, error) {
	if quantity <= 0 {
		return catalog.Listing{}, apperr.New(apperr.KindInvalidInput, "quantity for listing %d must be positive", listingID)
	}

	listing, err := tx.LockListing(ctx, listingID)
	if err != nil {
		return catalog.Listing{}, err
	}
	if listing.SellerID != sellerID {
		return catalog.Listing{}, apperr.New(apperr.KindMismatch,
			"listing %d does not belong to seller %d", listingID, sellerID)
	}
	if listing.Quantity < quantity {
		l.log.Debug("stock shortfall",
			zap.Int64("listing_id", listingID),
			zap.Int("available", listing.Quantity),
			zap.Int("requested", quantity),
		)
		return catalog.Listing{}, apperr.InsufficientStock(listingID, listing.Quantity, quantity)
	}

	left, err := tx.AdjustListingQuantity(ctx, listingID, -quantity)
	if err != nil {
		return catalog.Listing{}, err
	}
	listing.Quantity = left
	return listing, nil
}

// Release puts quantity units back on the listing.
func (l *Ledger) Release(ctx context.Context, tx Tx, listingID int64, quantity int) (catalog.Listing, error) {
	if quantity <= 0 {
		return catalog.Listing{}, apperr.New(apperr.KindInvalidInput, "quantity for listing %d must be positive", listingID)
	}
	listing, err := tx.LockListing(ctx, listingID)
	if err != nil {
		return catalog.Listing{}, err
	}
	left, err := tx.AdjustListingQuantity(ctx, listingID, quantity)
	if err != nil {
		return catalog.Listing{}, err
	}
	listing.Quantity = left
	return listing, nil
}
