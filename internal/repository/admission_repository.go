package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

// AdmissionRepository handles persistence of grade admissions. It is a
// read-only input to eligibility reconciliation; status transitions belong
// to the admission workflow, never to the enrollment engine.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

const admissionColumns = `id, student_id, grade_id, status, admitted_by, created_at, updated_at`

// List returns admissions filtered by the provided criteria.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, int, error) {
	base := `FROM student_admissions WHERE 1=1`
	var args []interface{}

	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.GradeID != "" {
		base += fmt.Sprintf(" AND grade_id = $%d", len(args)+1)
		args = append(args, filter.GradeID)
	}
	if filter.Status != "" {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, admissionColumns, base, size, offset)

	var admissions []models.StudentAdmission
	if err := r.db.SelectContext(ctx, &admissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list admissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	return admissions, total, nil
}

// FindByID returns an admission by its ID.
func (r *AdmissionRepository) FindByID(ctx context.Context, id string) (*models.StudentAdmission, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_admissions WHERE id = $1`, admissionColumns)
	var admission models.StudentAdmission
	if err := r.db.GetContext(ctx, &admission, query, id); err != nil {
		return nil, err
	}
	return &admission, nil
}

// ListActiveStudentIDsByGrade returns the ids of students holding an
// ACTIVE admission into the grade.
func (r *AdmissionRepository) ListActiveStudentIDsByGrade(ctx context.Context, gradeID string) ([]string, error) {
	if gradeID == "" {
		return nil, nil
	}
	const query = `SELECT student_id FROM student_admissions WHERE grade_id = $1 AND status = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, gradeID, models.AdmissionStatusActive); err != nil {
		return nil, fmt.Errorf("list admitted students: %w", err)
	}
	return ids, nil
}

// Create persists a new admission record.
func (r *AdmissionRepository) Create(ctx context.Context, admission *models.StudentAdmission) error {
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	admission.CreatedAt = now
	admission.UpdatedAt = now
	if admission.Status == "" {
		admission.Status = models.AdmissionStatusPending
	}
	const query = `INSERT INTO student_admissions (id, student_id, grade_id, status, admitted_by, created_at, updated_at)
        VALUES (:id, :student_id, :grade_id, :status, :admitted_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admission); err != nil {
		return fmt.Errorf("create admission: %w", err)
	}
	return nil
}

// UpdateStatus transitions an admission's status.
func (r *AdmissionRepository) UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error {
	const query = `UPDATE student_admissions SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update admission status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsActiveOrPending reports whether the student already has a live
// admission into the grade.
func (r *AdmissionRepository) ExistsActiveOrPending(ctx context.Context, studentID, gradeID string) (bool, error) {
	const query = `SELECT 1 FROM student_admissions WHERE student_id = $1 AND grade_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, studentID, gradeID, models.AdmissionStatusPending, models.AdmissionStatusActive)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check admission: %w", err)
	}
	return true, nil
}
