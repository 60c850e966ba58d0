package models

import "time"

// WasteCategory prices a kind of waste and decides who pays for collecting it.
type WasteCategory struct {
	ID                    string    `db:"id" json:"id"`
	Name                  string    `db:"name" json:"name"`
	Description           string    `db:"description" json:"description"`
	PricePerKg            float64   `db:"price_per_kg" json:"pricePerKg"`
	Active                bool      `db:"active" json:"active"`
	IsUserPaymentRequired bool      `db:"is_user_payment_required" json:"isUserPaymentRequired"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time `db:"updated_at" json:"updatedAt"`
}

// AdminPays reports whether collection of this category is paid by the municipality.
func (c *WasteCategory) AdminPays() bool {
	return !c.IsUserPaymentRequired
}

// WasteCategoryFilter captures filtering options for listing categories.
type WasteCategoryFilter struct {
	Active *bool
	Search string
}
