package models

import (
	"time"
)

// PersonalStatement is a saved free-text statement that can serve as the
// summary section of a generated biosketch.
type PersonalStatement struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	Title   string `json:"title"`
	Content string `json:"content" gorm:"type:text" binding:"required"`
}
