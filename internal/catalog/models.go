package catalog

import (
	"time"

	"github.com/ariefcatur/go-marketplace/internal/money"
)

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"-"`
}

// Listing is one seller's offer of a product (a seller_products row).
// Quantity is the available stock.
type Listing struct {
	ID        int64       `json:"id"`
	SellerID  int64       `json:"seller_id"`
	ProductID int64       `json:"product_id"`
	Price     money.Money `json:"price"`
	Quantity  int         `json:"quantity"`
}

type ProductSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ListingView struct {
	Listing
	Product ProductSummary `json:"product"`
}

type ProductView struct {
	Product
	Sellers []Listing `json:"sellers"`
}

type ProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

type ListingInput struct {
	ProductID int64       `json:"product_id" validate:"gt=0"`
	Price     money.Money `json:"price" validate:"gte=0"`
	Quantity  int         `json:"quantity" validate:"gte=0"`
}
