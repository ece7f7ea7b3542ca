package models

import "time"

type Brand struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Image      *string   `json:"image" gorm:"size:255"`
	Status     string    `json:"status" gorm:"size:20;not null;default:active;index"`
	CategoryID uint      `json:"category_id" gorm:"not null;index"`
	Category   *Category `json:"category,omitempty"`
	Products   []Product `json:"products,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Brand) TableName() string {
	return "brands"
}
