package models

type Product struct {
	BaseModel
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Brand       string `json:"brand"`
	Category    string `gorm:"index" json:"category"`
	ImageURL    string `json:"image_url"`
	// Prices are stored in minor units (cents) to avoid float rounding.
	PriceCents int64  `gorm:"not null" json:"price_cents"`
	Currency   string `gorm:"type:varchar(3);not null;default:'KES'" json:"currency"`
	Stock      int    `gorm:"not null;default:0" json:"stock"`
	IsActive   bool   `gorm:"not null;default:true" json:"is_active"`
}
