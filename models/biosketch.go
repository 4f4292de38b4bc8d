package models

import (
	"encoding/json"
	"time"
)

// Biosketch is a saved biosketch configuration: the selection a user made so
// it can be reloaded and regenerated later. The generation endpoint itself
// never writes this table; documents are streamed to the caller and
// discarded.
type Biosketch struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `json:"user" gorm:"index;not null"`

	Title               string `json:"title" binding:"required"`
	PersonalStatementID *uint  `json:"personal_statement_id,omitempty"`
	Summary             string `json:"summary,omitempty" gorm:"type:text"`

	// Ordered publication selections, stored as JSON integer arrays.
	RelatedPublicationIDs json.RawMessage `json:"related_publication_ids,omitempty" gorm:"type:jsonb"`
	OtherPublicationIDs   json.RawMessage `json:"other_publication_ids,omitempty" gorm:"type:jsonb"`
}
