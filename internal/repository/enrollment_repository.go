package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

// ErrDuplicateActive is returned when the store rejects an insert because
// the student already holds an ACTIVE enrollment in the same grade and
// session scope. The partial unique index on
// (student_id, grade_id, academic_session_id) WHERE status = 'ACTIVE'
// backs this; the insert uses ON CONFLICT DO NOTHING so a concurrent
// winner surfaces here instead of as a driver error.
var ErrDuplicateActive = errors.New("student already has an active enrollment in scope")

// EnrollmentRepository handles persistence of section enrollments. It is
// the write layer for the uniqueness invariant: eligibility filtering on
// the read side is advisory, the index decides.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, section_id, grade_id, academic_session_id, status, enrolled_by, enrolled_at, effective_from, effective_to, notes`

const insertEnrollmentQuery = `INSERT INTO student_section_enrollments
        (id, student_id, section_id, grade_id, academic_session_id, status, enrolled_by, enrolled_at, effective_from, effective_to, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (student_id, grade_id, academic_session_id) WHERE status = 'ACTIVE' DO NOTHING`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.SectionEnrollment, int, error) {
	base := `FROM student_section_enrollments WHERE 1=1`
	var args []interface{}

	if filter.StudentID != "" {
		base += fmt.Sprintf(" AND student_id = $%d", len(args)+1)
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		base += fmt.Sprintf(" AND section_id = $%d", len(args)+1)
		args = append(args, filter.SectionID)
	}
	if filter.GradeID != "" {
		base += fmt.Sprintf(" AND grade_id = $%d", len(args)+1)
		args = append(args, filter.GradeID)
	}
	if filter.AcademicSessionID != "" {
		base += fmt.Sprintf(" AND academic_session_id = $%d", len(args)+1)
		args = append(args, filter.AcademicSessionID)
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY enrolled_at DESC LIMIT %d OFFSET %d`, enrollmentColumns, base, size, offset)

	var enrollments []models.SectionEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_section_enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.SectionEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListActiveBySection returns the active roster of a section.
func (r *EnrollmentRepository) ListActiveBySection(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM student_section_enrollments WHERE section_id = $1 AND status = $2 ORDER BY enrolled_at ASC`, enrollmentColumns)
	var enrollments []models.SectionEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, sectionID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return enrollments, nil
}

// ListActiveStudentIDsByScope returns the ids of students with an ACTIVE
// enrollment in any section of the (grade, school, session) scope. The
// school constraint requires joining sections since enrollments only
// denormalize grade and session.
func (r *EnrollmentRepository) ListActiveStudentIDsByScope(ctx context.Context, scope models.SectionScope) ([]string, error) {
	if scope.Empty() {
		return nil, nil
	}
	const query = `SELECT e.student_id FROM student_section_enrollments e
        JOIN sections s ON s.id = e.section_id
        WHERE e.grade_id = $1 AND e.academic_session_id = $2 AND s.school_id = $3 AND e.status = $4`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, scope.GradeID, scope.AcademicSessionID, scope.SchoolID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list enrolled students by scope: %w", err)
	}
	return ids, nil
}

// InsertActiveBatch writes one ACTIVE enrollment per entry inside a single
// transaction. A per-row uniqueness conflict does not fail the batch: the
// row is simply skipped and reported false in the result map. Any other
// error rolls back the whole batch.
func (r *EnrollmentRepository) InsertActiveBatch(ctx context.Context, enrollments []*models.SectionEnrollment) (inserted map[string]bool, err error) {
	inserted = make(map[string]bool, len(enrollments))
	if len(enrollments) == 0 {
		return inserted, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, enrollment := range enrollments {
		prepareEnrollment(enrollment)
		var result sql.Result
		result, err = tx.ExecContext(ctx, insertEnrollmentQuery,
			enrollment.ID, enrollment.StudentID, enrollment.SectionID, enrollment.GradeID, enrollment.AcademicSessionID,
			enrollment.Status, enrollment.EnrolledBy, enrollment.EnrolledAt, enrollment.EffectiveFrom, enrollment.EffectiveTo, enrollment.Notes)
		if err != nil {
			return nil, fmt.Errorf("insert enrollment for student %s: %w", enrollment.StudentID, err)
		}
		rows, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			err = fmt.Errorf("inspect enrollment insert: %w", rowsErr)
			return nil, err
		}
		inserted[enrollment.StudentID] = rows > 0
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment batch: %w", err)
	}
	return inserted, nil
}

// Transfer marks the source enrollment TRANSFERRED and inserts the
// destination ACTIVE row as one unit of work. If the destination insert is
// rejected by the uniqueness index, the source marking is rolled back and
// ErrDuplicateActive is returned: a student is never left with zero active
// enrollments because of a half-applied transfer.
func (r *EnrollmentRepository) Transfer(ctx context.Context, sourceID string, dest *models.SectionEnrollment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var result sql.Result
	result, err = tx.ExecContext(ctx,
		`UPDATE student_section_enrollments SET status = $2, effective_to = $3 WHERE id = $1 AND status = $4`,
		sourceID, models.EnrollmentStatusTransferred, now, models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("mark enrollment transferred: %w", err)
	}
	if rows, rowsErr := result.RowsAffected(); rowsErr == nil && rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	prepareEnrollment(dest)
	result, err = tx.ExecContext(ctx, insertEnrollmentQuery,
		dest.ID, dest.StudentID, dest.SectionID, dest.GradeID, dest.AcademicSessionID,
		dest.Status, dest.EnrolledBy, dest.EnrolledAt, dest.EffectiveFrom, dest.EffectiveTo, dest.Notes)
	if err != nil {
		return fmt.Errorf("insert destination enrollment: %w", err)
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		err = fmt.Errorf("inspect destination insert: %w", rowsErr)
		return err
	}
	if rows == 0 {
		// The source row just left ACTIVE inside this same transaction, so
		// a conflict here means a different ACTIVE row exists for the
		// student in scope. Roll everything back.
		err = ErrDuplicateActive
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

// Withdraw marks an ACTIVE enrollment WITHDRAWN.
func (r *EnrollmentRepository) Withdraw(ctx context.Context, id string) error {
	const query = `UPDATE student_section_enrollments SET status = $2, effective_to = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusWithdrawn, time.Now().UTC(), models.EnrollmentStatusActive)
	if err != nil {
		return fmt.Errorf("withdraw enrollment: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func prepareEnrollment(e *models.SectionEnrollment) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = models.EnrollmentStatusActive
	}
}
