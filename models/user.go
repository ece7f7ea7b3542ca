package models

import "time"

// User is a back-office account. Password holds the bcrypt hash and is
// never serialized.
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FirstName  string    `json:"first_name" gorm:"size:255;not null"`
	LastName   string    `json:"last_name" gorm:"size:255;not null"`
	Email      string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Phone      string    `json:"phone" gorm:"size:20;not null"`
	Department string    `json:"department" gorm:"size:255;not null"`
	Role       string    `json:"role" gorm:"size:20;not null;default:user"`
	Status     string    `json:"status" gorm:"size:20;not null;default:active;index"`
	Password   string    `json:"-" gorm:"size:255;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may sign in.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
