package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Alert is a stored price-drop request. TargetPrice is in the pivot currency.
type Alert struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	Contact     string          `json:"contact"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Favorite is a bookmarked catalog product.
type Favorite struct {
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}
