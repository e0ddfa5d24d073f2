package models

import "time"

// TranscriptFormat selects the rendered document type.
type TranscriptFormat string

const (
	TranscriptFormatCSV TranscriptFormat = "CSV"
	TranscriptFormatPDF TranscriptFormat = "PDF"
)

// TranscriptJobStatus tracks asynchronous transcript generation.
type TranscriptJobStatus string

const (
	TranscriptJobPending   TranscriptJobStatus = "PENDING"
	TranscriptJobCompleted TranscriptJobStatus = "COMPLETED"
	TranscriptJobFailed    TranscriptJobStatus = "FAILED"
)

// TranscriptJob describes one requested transcript document.
type TranscriptJob struct {
	ID          string              `json:"id"`
	StudentID   string              `json:"student_id"`
	Format      TranscriptFormat    `json:"format"`
	Status      TranscriptJobStatus `json:"status"`
	Filename    string              `json:"filename,omitempty"`
	Error       string              `json:"error,omitempty"`
	RequestedAt time.Time           `json:"requested_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}
