package core

import (
	"context"
	"time"
)

type ProductType string

const (
	ProductTShirt     ProductType = "tshirt"
	ProductHoodie     ProductType = "hoodie"
	ProductTank       ProductType = "tank"
	ProductSweatshirt ProductType = "sweatshirt"
)

type (
	// Product is a garment from the catalog. Colors is the palette a design's
	// base color must be picked from.
	Product struct {
		ID        string      `json:"id" yaml:"id"`
		Name      string      `json:"name" yaml:"name"`
		Type      ProductType `json:"type" yaml:"type"`
		BasePrice float64     `json:"basePrice" yaml:"basePrice"`
		Colors    []string    `json:"colors" yaml:"colors"`
		Image     string      `json:"image" yaml:"image"`
	}

	// CartItem wraps a design with the product it is printed on. Price is
	// copied from the product when the item is added.
	CartItem struct {
		ID       string  `json:"id"`
		Design   Design  `json:"design"`
		Product  Product `json:"product"`
		Quantity int     `json:"quantity"`
		Price    float64 `json:"price"`
	}

	ShippingInfo struct {
		FullName   string `json:"fullName"`
		Address    string `json:"address"`
		City       string `json:"city"`
		State      string `json:"state"`
		PostalCode string `json:"postalCode"`
		Country    string `json:"country"`
	}

	Order struct {
		ID            string       `json:"id"`
		UserID        string       `json:"userId"`
		Items         []CartItem   `json:"items"`
		Subtotal      float64      `json:"subtotal"`
		ShippingCost  float64      `json:"shippingCost"`
		Total         float64      `json:"total"`
		PaymentMethod string       `json:"paymentMethod"`
		Shipping      ShippingInfo `json:"shippingInfo"`
		Status        string       `json:"status"`
		CreatedAt     time.Time    `json:"createdAt"`
	}

	OrderStore interface {
		CreateOrder(ctx context.Context, order *Order) error
		ListOrders(ctx context.Context, userID string) ([]*Order, error)
		GetOrder(ctx context.Context, userID, id string) (*Order, error)
	}
)
