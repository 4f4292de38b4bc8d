package models

import (
	"time"
)

// Education is one degree entry. Listings for document generation order by
// graduation year descending.
type Education struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	SchoolName   string `json:"school_name" binding:"required"`
	Location     string `json:"location"`
	FieldOfStudy string `json:"field_of_study"`
	DegreeType   string `json:"degree_type"`
	GradYear     int    `json:"grad_year"`
}
