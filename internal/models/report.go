package models

import "time"

// ReportFormat selects the rendered output for graduation roster exports.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid returns true when the format is supported.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF
}

// ReportStatus tracks the lifecycle of an asynchronous report job.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusRunning   ReportStatus = "RUNNING"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// ReportJob is a queued graduation-roster export.
type ReportJob struct {
	ID          string       `db:"id" json:"id"`
	ProgramID   string       `db:"program_id" json:"program_id"`
	Format      ReportFormat `db:"format" json:"format"`
	Status      ReportStatus `db:"status" json:"status"`
	FilePath    *string      `db:"file_path" json:"-"`
	ErrorText   *string      `db:"error_text" json:"error,omitempty"`
	RequestedBy string       `db:"requested_by" json:"requested_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
}

// GraduationRosterRow is one line of the exported roster.
type GraduationRosterRow struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	CohortYear  int    `json:"cohort_year"`
	Eligible    bool   `json:"eligible"`
}
