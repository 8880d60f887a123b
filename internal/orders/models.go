package orders

import (
	"time"

	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/money"
)

type Order struct {
	ID         int64       `json:"id"`
	BuyerID    int64       `json:"buyer_id"`
	SellerID   int64       `json:"seller_id"`
	TotalPrice money.Money `json:"total_price"`
	Status     Status      `json:"status"` // lihat status.go
	// Version starts at 1 and grows with every status change.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is immutable once written. PriceAtPurchase is the listing price
// at commit time and is never re-derived.
type OrderItem struct {
	ID              int64       `json:"id"`
	OrderID         int64       `json:"order_id"`
	ListingID       int64       `json:"seller_product_id"`
	Quantity        int         `json:"quantity"`
	PriceAtPurchase money.Money `json:"price_at_purchase"`
}

// LineItem is one requested line of a new order.
type LineItem struct {
	ListingID int64
	Quantity  int
}

type OrderItemView struct {
	OrderItem
	Listing catalog.ListingView `json:"seller_product"`
}

type OrderView struct {
	Order
	Items []OrderItemView `json:"items"`
}
