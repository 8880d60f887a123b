package orders

import (
	"context"

	"github.com/ariefcatur/go-marketplace/internal/inventory"
)

// Tx is the transactional view of the order tables plus listing stock.
type Tx interface {
	inventory.Tx

	// InsertOrder writes the header and fills in ID and timestamps.
	InsertOrder(ctx context.Context, o *Order) error
	// InsertOrderItem writes one line and fills in its ID.
	InsertOrderItem(ctx context.Context, it *OrderItem) error
	// LockOrder reads the order row and holds its lock until the transaction ends.
	LockOrder(ctx context.Context, orderID int64) (Order, error)
	// SetOrderStatus writes status, bumps the version and returns the row.
	SetOrderStatus(ctx context.Context, orderID int64, status Status) (Order, error)
	OrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
}

// UnitOfWork runs fn in one transaction. It commits when fn returns nil and
// rolls back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader loads committed orders with their items resolved.
type Reader interface {
	OrderView(ctx context.Context, orderID int64) (OrderView, error)
	OrdersForBuyer(ctx context.Context, buyerID int64) ([]OrderView, error)
	OrdersForSeller(ctx context.Context, sellerID int64) ([]OrderView, error)
}

type Store interface {
	UnitOfWork
	Reader
}
