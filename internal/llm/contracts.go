package llm

import "context"

// GapFields is the normalized discrepancy shape we want from the LLM.
type GapFields struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Item           string `json:"item"`
	Participants   string `json:"participants"`    // comma-separated names
	AmountIncrease string `json:"amount_increase"` // non-negative decimal, "0.00" = no discrepancy
}

// AlarmFields is the normalized compliance-audit shape.
type AlarmFields struct {
	DateTime *string `json:"date_time"` // YYYY-MM-DD [HH:MM:SS], nil when unknown
	Summary  string  `json:"summary"`
}

// AttachmentRef is one referenced-but-absent attachment.
type AttachmentRef struct {
	AttachmentName string  `json:"attachment_name"` // filename with extension
	MessageDate    *string `json:"message_date"`    // nil when unknown
}

// ReferenceFields is the normalized missing-reference shape. The list may be
// empty; that is a valid result.
type ReferenceFields struct {
	References []AttachmentRef `json:"references"`
}

// Extractor is the interface the pipeline stages depend on.
type Extractor interface {
	ExtractGap(ctx context.Context, text string) (GapFields, []byte /*rawJSON*/, error)
	ExtractAlarm(ctx context.Context, text string) (AlarmFields, []byte, error)
	ExtractReferences(ctx context.Context, text string) (ReferenceFields, []byte, error)
}
