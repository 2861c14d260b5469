package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

// AcademicSessionRepository handles persistence of academic sessions.
type AcademicSessionRepository struct {
	db *sqlx.DB
}

// NewAcademicSessionRepository constructs the repository.
func NewAcademicSessionRepository(db *sqlx.DB) *AcademicSessionRepository {
	return &AcademicSessionRepository{db: db}
}

// List returns sessions of a tenant.
func (r *AcademicSessionRepository) List(ctx context.Context, filter models.AcademicSessionFilter) ([]models.AcademicSession, int, error) {
	base := `FROM academic_sessions WHERE tenant_id = $1`
	args := []interface{}{filter.TenantID}

	if filter.Active != nil {
		base += fmt.Sprintf(" AND is_active = $%d", len(args)+1)
		args = append(args, *filter.Active)
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT id, tenant_id, name, start_date, end_date, is_active, created_at, updated_at %s ORDER BY start_date %s LIMIT %d OFFSET %d`,
		base, order, size, offset)

	var sessions []models.AcademicSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list academic sessions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count academic sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByID returns a session by its ID.
func (r *AcademicSessionRepository) FindByID(ctx context.Context, id string) (*models.AcademicSession, error) {
	const query = `SELECT id, tenant_id, name, start_date, end_date, is_active, created_at, updated_at FROM academic_sessions WHERE id = $1`
	var session models.AcademicSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists a new session record.
func (r *AcademicSessionRepository) Create(ctx context.Context, session *models.AcademicSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO academic_sessions (id, tenant_id, name, start_date, end_date, is_active, created_at, updated_at)
        VALUES (:id, :tenant_id, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create academic session: %w", err)
	}
	return nil
}

// Update rewrites mutable session fields.
func (r *AcademicSessionRepository) Update(ctx context.Context, session *models.AcademicSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_sessions SET name = :name, start_date = :start_date, end_date = :end_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return fmt.Errorf("update academic session: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
