package models

import "time"

// ExportFormat selects the rendered artifact type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportJobStatus tracks asynchronous export progress.
type ExportJobStatus string

const (
	ExportJobQueued    ExportJobStatus = "queued"
	ExportJobRunning   ExportJobStatus = "running"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)

// ExportJob describes one rota export request and its artifact.
type ExportJob struct {
	ID          string          `json:"id"`
	Format      ExportFormat    `json:"format"`
	Status      ExportJobStatus `json:"status"`
	FilePath    string          `json:"-"`
	DownloadURL string          `json:"download_url,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
