package models

import "time"

// Document statuses recorded after the analysis step.
const (
	DocumentStatusAnalyzed         = "analyzed"
	DocumentStatusAnalysisFailed   = "analysis_failed"
	DocumentStatusExtractionFailed = "extraction_failed"
)

// Document is a processed client document together with the text pulled
// out of it and the analysis produced for it.
type Document struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	FileName      string    `json:"file_name"`
	StoredPath    string    `json:"-"`
	Format        string    `json:"format"`
	Size          int64     `json:"size"`
	Status        string    `json:"status"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	Analysis      string    `json:"analysis"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
}
