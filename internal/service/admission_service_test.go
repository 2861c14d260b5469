package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type mockAdmissionStore struct {
	admissions map[string]*models.StudentAdmission
	duplicate  bool
	created    []*models.StudentAdmission
}

func (m *mockAdmissionStore) List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, int, error) {
	out := make([]models.StudentAdmission, 0, len(m.admissions))
	for _, a := range m.admissions {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAdmissionStore) FindByID(ctx context.Context, id string) (*models.StudentAdmission, error) {
	if a, ok := m.admissions[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdmissionStore) Create(ctx context.Context, admission *models.StudentAdmission) error {
	admission.ID = "adm-new"
	m.created = append(m.created, admission)
	return nil
}

func (m *mockAdmissionStore) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error {
	a, ok := m.admissions[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	return nil
}

func (m *mockAdmissionStore) ExistsActiveOrPending(ctx context.Context, studentID, gradeID string) (bool, error) {
	return m.duplicate, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func admissionFixture() (*AdmissionService, *mockAdmissionStore) {
	repo := &mockAdmissionStore{admissions: map[string]*models.StudentAdmission{
		"adm-pending":  {ID: "adm-pending", StudentID: "stu-1", GradeID: "grade-1", Status: models.AdmissionStatusPending},
		"adm-active":   {ID: "adm-active", StudentID: "stu-2", GradeID: "grade-1", Status: models.AdmissionStatusActive},
		"adm-inactive": {ID: "adm-inactive", StudentID: "stu-3", GradeID: "grade-1", Status: models.AdmissionStatusInactive},
	}}
	students := &mockStudentReader{students: map[string]*models.Student{
		"stu-1":    {ID: "stu-1", TenantID: "tenant-1", FullName: "Ana", Active: true},
		"stu-gone": {ID: "stu-gone", TenantID: "tenant-1", FullName: "Bram", Active: false},
		"stu-far":  {ID: "stu-far", TenantID: "tenant-2", FullName: "Cleo", Active: true},
	}}
	grades := &mockGradeReader{grades: map[string]*models.Grade{
		"grade-1": {ID: "grade-1", TenantID: "tenant-1", Name: "Grade 1", Level: 1},
	}}
	svc := NewAdmissionService(repo, students, grades, nil, zap.NewNop())
	return svc, repo
}

func TestAdmissionCreateStartsPending(t *testing.T) {
	svc, repo := admissionFixture()
	actor := models.Identity{State: models.IdentityResolved, UserID: "admin-1", Role: models.RoleTenantAdmin}

	admission, err := svc.Create(context.Background(), CreateAdmissionRequest{StudentID: "stu-1", GradeID: "grade-1"}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusPending, admission.Status)
	assert.Equal(t, "admin-1", admission.AdmittedBy)
	require.Len(t, repo.created, 1)
}

func TestAdmissionCreateRejectsUnknownStudent(t *testing.T) {
	svc, _ := admissionFixture()

	_, err := svc.Create(context.Background(), CreateAdmissionRequest{StudentID: "stu-missing", GradeID: "grade-1"}, models.Identity{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInvalid.Code, appErrors.FromError(err).Code)
}

func TestAdmissionCreateRejectsInactiveStudent(t *testing.T) {
	svc, _ := admissionFixture()

	_, err := svc.Create(context.Background(), CreateAdmissionRequest{StudentID: "stu-gone", GradeID: "grade-1"}, models.Identity{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAdmissionCreateRejectsCrossTenantGrade(t *testing.T) {
	svc, _ := admissionFixture()

	_, err := svc.Create(context.Background(), CreateAdmissionRequest{StudentID: "stu-far", GradeID: "grade-1"}, models.Identity{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInvalid.Code, appErrors.FromError(err).Code)
}

func TestAdmissionCreateRejectsDuplicate(t *testing.T) {
	svc, repo := admissionFixture()
	repo.duplicate = true

	_, err := svc.Create(context.Background(), CreateAdmissionRequest{StudentID: "stu-1", GradeID: "grade-1"}, models.Identity{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAdmissionActivatePendingOnly(t *testing.T) {
	svc, repo := admissionFixture()

	admission, err := svc.Activate(context.Background(), "adm-pending")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusActive, admission.Status)
	assert.Equal(t, models.AdmissionStatusActive, repo.admissions["adm-pending"].Status)

	_, err = svc.Activate(context.Background(), "adm-active")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Activate(context.Background(), "adm-inactive")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAdmissionDeactivateFromAnyLiveState(t *testing.T) {
	svc, repo := admissionFixture()

	admission, err := svc.Deactivate(context.Background(), "adm-active")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusInactive, admission.Status)

	admission, err = svc.Deactivate(context.Background(), "adm-pending")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusInactive, admission.Status)
	assert.Equal(t, models.AdmissionStatusInactive, repo.admissions["adm-pending"].Status)
}

func TestAdmissionDeactivateTwiceFails(t *testing.T) {
	svc, _ := admissionFixture()

	_, err := svc.Deactivate(context.Background(), "adm-inactive")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAdmissionGetNotFound(t *testing.T) {
	svc, _ := admissionFixture()

	_, err := svc.Get(context.Background(), "adm-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
