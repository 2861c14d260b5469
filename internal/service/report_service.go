package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
	"github.com/noah-isme/edu-platform-api/pkg/export"
	"github.com/noah-isme/edu-platform-api/pkg/storage"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type rosterProvider interface {
	Roster(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error)
}

type eligibilityLister interface {
	ListEligible(ctx context.Context, scope models.SectionScope) ([]string, error)
}

type studentDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Student, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ReportConfig tunes roster export behaviour.
type ReportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// RosterExport captures successful generation metadata.
type RosterExport struct {
	Token     string       `json:"-"`
	URL       string       `json:"url"`
	Format    ExportFormat `json:"format"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RosterDownload aggregates resolved download data.
type RosterDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ReportService renders section rosters to CSV or PDF, persists the file
// on local storage and hands out HMAC signed download links. Generation is
// synchronous; rosters are small.
type ReportService struct {
	rosters     rosterProvider
	eligibility eligibilityLister
	sections    sectionReader
	students    studentDirectory
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ReportConfig
}

// NewReportService constructs the report service.
func NewReportService(rosters rosterProvider, eligibility eligibilityLister, sections sectionReader, students studentDirectory, files fileStorage, signer *storage.SignedURLSigner, cfg ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		rosters:     rosters,
		eligibility: eligibility,
		sections:    sections,
		students:    students,
		storage:     files,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// ExportRoster renders the active roster of a section and returns a signed
// download link.
func (s *ReportService) ExportRoster(ctx context.Context, sectionID string, format ExportFormat) (*RosterExport, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	roster, err := s.rosters.Roster(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(roster))
	for _, e := range roster {
		ids = append(ids, e.StudentID)
	}
	directory, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	dataset := export.Dataset{
		Headers: []string{"Student ID", "Full Name", "Enrolled At", "Enrolled By"},
	}
	for _, e := range roster {
		name := ""
		if student, ok := directory[e.StudentID]; ok {
			name = student.FullName
		}
		dataset.Rows = append(dataset.Rows, []string{
			e.StudentID,
			name,
			e.EnrolledAt.UTC().Format(time.RFC3339),
			e.EnrolledBy,
		})
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Roster %s", section.Name))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	filename := fmt.Sprintf("roster_%s_%%s.%s", sectionID, format)
	return s.persist(filename, payload, format)
}

// ExportEligible renders the eligible student list of a placement scope
// and returns a signed download link.
func (s *ReportService) ExportEligible(ctx context.Context, scope models.SectionScope, format ExportFormat) (*RosterExport, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if scope.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grade_id, school_id and academic_session_id are required")
	}

	ids, err := s.eligibility.ListEligible(ctx, scope)
	if err != nil {
		return nil, err
	}
	directory, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	dataset := export.Dataset{Headers: []string{"Student ID", "Full Name"}}
	for _, id := range ids {
		name := ""
		if student, ok := directory[id]; ok {
			name = student.FullName
		}
		dataset.Rows = append(dataset.Rows, []string{id, name})
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Eligible Students %s", scope.GradeID))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render eligible list")
	}

	filename := fmt.Sprintf("eligible_%s_%%s.%s", scope.GradeID, format)
	return s.persist(filename, payload, format)
}

// persist stores the rendered payload and mints a signed download link.
// filenamePattern must contain one %s for the export ID fragment.
func (s *ReportService) persist(filenamePattern string, payload []byte, format ExportFormat) (*RosterExport, error) {
	exportID := uuid.NewString()
	filename := fmt.Sprintf(filenamePattern, exportID[:8])
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export file")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &RosterExport{
		Token:     token,
		URL:       fmt.Sprintf("%s/reports/download/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// ResolveDownload validates the token and opens the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*RosterDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return &RosterDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				} else if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}
