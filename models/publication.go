package models

import (
	"time"
)

// Publication is a single publication record owned by one user. Bibliographic
// fields may be filled by hand or enriched from the DOI registry; Citation is
// the preformatted reference text used verbatim in generated documents.
type Publication struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	DOI      string `json:"doi,omitempty" gorm:"index"`
	Title    string `json:"title,omitempty"`
	Authors  string `json:"authors,omitempty"`
	Journal  string `json:"journal,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Volume   string `json:"volume,omitempty"`
	Issue    string `json:"issue,omitempty"`
	Pages    string `json:"pages,omitempty"`
	Citation string `json:"citation,omitempty" gorm:"type:text"`
}
