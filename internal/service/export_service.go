package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentorship-api/internal/models"
	"github.com/noah-isme/mentorship-api/pkg/export"
	"github.com/noah-isme/mentorship-api/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	Sweep(retention time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(roster export.Roster) ([]byte, error)
}

type pdfRenderer interface {
	Render(roster export.Roster, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders graduation rosters and persists the files behind
// signed download tokens.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.DownloadSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(store fileStorage, signer *storage.DownloadSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Render builds the roster file for a job and stores it.
func (s *ExportService) Render(job *models.ReportJob, rows []models.GraduationRosterRow) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}

	roster := buildExportRoster(job.ProgramID, rows)

	var payload []byte
	var err error
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(roster)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(roster, fmt.Sprintf("Graduation Roster %s", job.ProgramID))
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.DownloadURL(token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// DownloadURL renders the public path serving a download token.
func (s *ExportService) DownloadURL(token string) string {
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	if base == "" {
		base = "/api/v1"
	}
	return fmt.Sprintf("%s/export/%s", base, token)
}

// SignDownload mints a fresh download token for a stored file.
func (s *ExportService) SignDownload(jobID, relPath string) (string, time.Time, error) {
	return s.signer.Sign(jobID, relPath)
}

// VerifyToken checks a download token and returns its claims.
func (s *ExportService) VerifyToken(token string, allowExpired bool) (*storage.DownloadClaims, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL
// when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.Sweep(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	programPart := sanitizeFilename(job.ProgramID)
	return fmt.Sprintf("roster_%s_%s.%s", programPart, timestamp, job.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func buildExportRoster(programID string, rows []models.GraduationRosterRow) export.Roster {
	exportRows := make([]export.RosterRow, 0, len(rows))
	for _, row := range rows {
		exportRows = append(exportRows, export.RosterRow{
			StudentID:   row.StudentID,
			StudentName: row.StudentName,
			CohortYear:  row.CohortYear,
			Eligible:    row.Eligible,
		})
	}
	return export.Roster{Program: programID, Rows: exportRows}
}
