package entity

import (
	"time"

	"github.com/google/uuid"
)

// AlarmFinding is one compliance-audit pass over an analyzed document.
type AlarmFinding struct {
	ID         uuid.UUID `json:"id"`
	AnalysisID uuid.UUID `json:"analysis_id"`
	DateTime   *string   `json:"date_time,omitempty"` // nil when no date could be extracted
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}
