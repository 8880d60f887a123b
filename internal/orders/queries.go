package orders

import (
	"context"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/auth"
)

type Queries struct {
	reader Reader
}

// BuyerHistory returns the buyer's orders, newest first.
func (q *Queries) BuyerHistory(ctx context.Context, buyerID int64) ([]OrderView, error) {
	return q.reader.OrdersForBuyer(ctx, buyerID)
}

// SellerOrders returns the orders placed against the seller, newest first.
func (q *Queries) SellerOrders(ctx context.Context, sellerID int64) ([]OrderView, error) {
	return q.reader.OrdersForSeller(ctx, sellerID)
}

// Get returns one order to its buyer, its seller or an admin.
func (q *Queries) Get(ctx context.Context, orderID int64, viewer auth.Identity) (OrderView, error) {
	v, err := q.reader.OrderView(ctx, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if viewer.IsAdmin() || viewer.UserID == v.BuyerID || viewer.UserID == v.SellerID {
		return v, nil
	}
	return OrderView{}, apperr.New(apperr.KindForbidden, "order %d is not yours", orderID)
}
