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

// SectionRepository handles persistence of sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

const sectionColumns = `id, grade_id, school_id, academic_session_id, name, is_active, created_at, updated_at`

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	base := `FROM sections WHERE 1=1`
	var args []interface{}

	if filter.GradeID != "" {
		base += fmt.Sprintf(" AND grade_id = $%d", len(args)+1)
		args = append(args, filter.GradeID)
	}
	if filter.SchoolID != "" {
		base += fmt.Sprintf(" AND school_id = $%d", len(args)+1)
		args = append(args, filter.SchoolID)
	}
	if filter.AcademicSessionID != "" {
		base += fmt.Sprintf(" AND academic_session_id = $%d", len(args)+1)
		args = append(args, filter.AcademicSessionID)
	}
	if filter.Active != nil {
		base += fmt.Sprintf(" AND is_active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d`, sectionColumns, base, size, offset)

	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE id = $1`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ListByScope returns every section of a (grade, school, session) triple
// regardless of active flag. An empty scope yields an empty slice.
func (r *SectionRepository) ListByScope(ctx context.Context, scope models.SectionScope) ([]models.Section, error) {
	if scope.Empty() {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE grade_id = $1 AND school_id = $2 AND academic_session_id = $3`, sectionColumns)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, scope.GradeID, scope.SchoolID, scope.AcademicSessionID); err != nil {
		return nil, fmt.Errorf("list sections by scope: %w", err)
	}
	return sections, nil
}

// Create persists a new section record.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, grade_id, school_id, academic_session_id, name, is_active, created_at, updated_at)
        VALUES (:id, :grade_id, :school_id, :academic_session_id, :name, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// SetActive flips the section's is_active flag. Existing enrollments are
// untouched; the enrollment service rejects placements into inactive
// sections at write time.
func (r *SectionRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE sections SET is_active = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, active, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("toggle section status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
