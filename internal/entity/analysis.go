package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Analysis is the canonical row for one analyzed source document: the raw
// extracted text plus the discrepancy finding reported by the model.
type Analysis struct {
	ID             uuid.UUID       `json:"id"`
	Filename       string          `json:"filename"`
	OriginalText   string          `json:"original_text"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Item           string          `json:"item"`
	Participants   string          `json:"participants"`
	AmountIncrease decimal.Decimal `json:"amount_increase"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Flagged reports whether the analysis found a positive discrepancy amount.
func (a *Analysis) Flagged() bool {
	return a.AmountIncrease.IsPositive()
}
