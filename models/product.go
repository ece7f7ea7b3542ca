package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. CreateBy points at the user who created it;
// the column keeps its historical name create_by.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Description *string         `json:"description" gorm:"type:text"`
	Qty         int             `json:"qty" gorm:"not null;default:0"`
	Status      string          `json:"status" gorm:"size:20;not null;default:active;index"`
	CategoryID  uint            `json:"category_id" gorm:"not null;index"`
	BrandID     uint            `json:"brand_id" gorm:"not null;index"`
	CreateBy    uint            `json:"create_by" gorm:"column:create_by;not null;index"`

	Category *Category      `json:"category,omitempty"`
	Brand    *Brand         `json:"brand,omitempty"`
	Creator  *User          `json:"creator,omitempty" gorm:"foreignKey:CreateBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	Images   []ProductImage `json:"images,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
