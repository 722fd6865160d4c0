package domain

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductFilter narrows a catalog listing. Zero values disable a criterion.
type ProductFilter struct {
	Categories []string
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
}
