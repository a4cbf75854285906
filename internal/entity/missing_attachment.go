package entity

import (
	"time"

	"github.com/google/uuid"
)

// MissingAttachment is one referenced-but-absent attachment discovered in a
// document's text. A document may yield zero or many of these.
type MissingAttachment struct {
	ID             uuid.UUID `json:"id"`
	AnalysisID     uuid.UUID `json:"analysis_id"`
	Filename       string    `json:"filename"` // denormalized source document name
	AttachmentName string    `json:"attachment_name"`
	MessageDate    *string   `json:"message_date,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
