package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
	"github.com/noah-isme/edu-platform-api/pkg/storage"
)

type mockRosterProvider struct {
	rosters map[string][]models.SectionEnrollment
}

func (m *mockRosterProvider) Roster(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error) {
	return m.rosters[sectionID], nil
}

type mockEligibilityLister struct {
	eligible []string
}

func (m *mockEligibilityLister) ListEligible(ctx context.Context, scope models.SectionScope) ([]string, error) {
	return m.eligible, nil
}

type mockStudentDirectory struct {
	students map[string]models.Student
}

func (m *mockStudentDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]models.Student, error) {
	out := make(map[string]models.Student, len(ids))
	for _, id := range ids {
		if s, ok := m.students[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type dirStorage struct {
	dir string
}

func (d *dirStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(d.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

func (d *dirStorage) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(d.dir, filename))
}

func (d *dirStorage) Delete(filename string) error {
	return os.Remove(filepath.Join(d.dir, filename))
}

func (d *dirStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func reportFixture(t *testing.T) *ReportService {
	t.Helper()
	enrolled := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	rosters := &mockRosterProvider{rosters: map[string][]models.SectionEnrollment{
		"sec-1": {
			{ID: "enr-1", StudentID: "stu-1", SectionID: "sec-1", Status: models.EnrollmentStatusActive, EnrolledBy: "admin-1", EnrolledAt: enrolled},
			{ID: "enr-2", StudentID: "stu-2", SectionID: "sec-1", Status: models.EnrollmentStatusActive, EnrolledBy: "admin-1", EnrolledAt: enrolled},
		},
	}}
	sections := &mockSectionReader{sections: map[string]*models.Section{
		"sec-1": {ID: "sec-1", GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1", Name: "1A", IsActive: true},
	}}
	students := &mockStudentDirectory{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FullName: "Ana Pratama"},
		"stu-2": {ID: "stu-2", FullName: "Budi Santoso"},
		"stu-3": {ID: "stu-3", FullName: "Citra Lestari"},
	}}
	eligibility := &mockEligibilityLister{eligible: []string{"stu-3"}}
	files := &dirStorage{dir: t.TempDir()}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	cfg := ReportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	return NewReportService(rosters, eligibility, sections, students, files, signer, cfg, zap.NewNop())
}

func TestExportRosterCSVRoundTrip(t *testing.T) {
	svc := reportFixture(t)

	result, err := svc.ExportRoster(context.Background(), "sec-1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, result.Format)
	assert.Contains(t, result.URL, "/api/v1/reports/download/")
	assert.True(t, result.ExpiresAt.After(time.Now()))

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()

	raw, err := os.ReadFile(download.File.Name())
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "Student ID,Full Name,Enrolled At,Enrolled By"))
	assert.Contains(t, content, "stu-1,Ana Pratama")
	assert.Contains(t, content, "stu-2,Budi Santoso")
}

func TestExportRosterPDF(t *testing.T) {
	svc := reportFixture(t)

	result, err := svc.ExportRoster(context.Background(), "sec-1", ExportFormatPDF)
	require.NoError(t, err)

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()

	raw, err := os.ReadFile(download.File.Name())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}

func TestExportEligibleCSV(t *testing.T) {
	svc := reportFixture(t)
	scope := models.SectionScope{GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1"}

	result, err := svc.ExportEligible(context.Background(), scope, ExportFormatCSV)
	require.NoError(t, err)

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	defer download.File.Close()

	raw, err := os.ReadFile(download.File.Name())
	require.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "Student ID,Full Name"))
	assert.Contains(t, content, "stu-3,Citra Lestari")
}

func TestExportEligibleRequiresFullScope(t *testing.T) {
	svc := reportFixture(t)

	_, err := svc.ExportEligible(context.Background(), models.SectionScope{GradeID: "grade-1"}, ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportRosterUnsupportedFormat(t *testing.T) {
	svc := reportFixture(t)

	_, err := svc.ExportRoster(context.Background(), "sec-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportRosterSectionNotFound(t *testing.T) {
	svc := reportFixture(t)

	_, err := svc.ExportRoster(context.Background(), "sec-missing", ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveDownloadRejectsTamperedToken(t *testing.T) {
	svc := reportFixture(t)

	result, err := svc.ExportRoster(context.Background(), "sec-1", ExportFormatCSV)
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), result.Token+"x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
