package domain

import "time"

type Product struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	SKU                 string    `json:"sku,omitempty"`
	Category            string    `json:"category"`
	Brand               string    `json:"brand,omitempty"`
	PriceCents          int64     `json:"priceCents"`
	CompareAtPriceCents *int64    `json:"compareAtPriceCents,omitempty"`
	Currency            string    `json:"currency"`
	Images              []string  `json:"images,omitempty"`
	Inventory           int       `json:"inventory"`
	Featured            bool      `json:"featured"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
