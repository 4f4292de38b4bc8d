package models

import (
	"time"
)

// ProfessionalExperience is one appointment. A nil EndYear means the position
// is ongoing. Listings for document generation order by start year descending.
type ProfessionalExperience struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	Title       string `json:"title" binding:"required"`
	Institution string `json:"institution"`
	StartYear   int    `json:"start_year"`
	EndYear     *int   `json:"end_year,omitempty"`
}
