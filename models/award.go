package models

import (
	"time"
)

// Award is a single honor or award entry.
type Award struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	Name string `json:"name" binding:"required"`
	Year int    `json:"year"`
}
