package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListActiveStudentIDsByScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-2")
	mock.ExpectQuery(`SELECT e.student_id FROM student_section_enrollments e`).
		WithArgs("grade-1", "sess-1", "school-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	ids, err := repo.ListActiveStudentIDsByScope(context.Background(), models.SectionScope{
		GradeID: "grade-1", SchoolID: "school-1", AcademicSessionID: "sess-1",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"stu-1", "stu-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryScopeQuerySkippedWhenEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	ids, err := repo.ListActiveStudentIDsByScope(context.Background(), models.SectionScope{GradeID: "grade-1"})
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertActiveBatchReportsConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	// First student inserts, second hits the partial unique index and the
	// ON CONFLICT clause swallows the row.
	mock.ExpectExec(`INSERT INTO student_section_enrollments`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO student_section_enrollments`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.InsertActiveBatch(context.Background(), []*models.SectionEnrollment{
		{StudentID: "stu-1", SectionID: "sec-1", GradeID: "grade-1", AcademicSessionID: "sess-1", EnrolledBy: "actor-1"},
		{StudentID: "stu-2", SectionID: "sec-1", GradeID: "grade-1", AcademicSessionID: "sess-1", EnrolledBy: "actor-1"},
	})
	require.NoError(t, err)
	require.True(t, inserted["stu-1"])
	require.False(t, inserted["stu-2"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertActiveBatchRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO student_section_enrollments`).WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.InsertActiveBatch(context.Background(), []*models.SectionEnrollment{
		{StudentID: "stu-1", SectionID: "sec-1", GradeID: "grade-1", AcademicSessionID: "sess-1"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransferCommitsBothSteps(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE student_section_enrollments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO student_section_enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transfer(context.Background(), "enr-1", &models.SectionEnrollment{
		StudentID: "stu-1", SectionID: "sec-2", GradeID: "grade-1", AcademicSessionID: "sess-1", EnrolledBy: "actor-1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransferRollsBackWhenDestinationConflicts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE student_section_enrollments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO student_section_enrollments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transfer(context.Background(), "enr-1", &models.SectionEnrollment{
		StudentID: "stu-1", SectionID: "sec-2", GradeID: "grade-1", AcademicSessionID: "sess-1",
	})
	require.ErrorIs(t, err, ErrDuplicateActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransferRequiresActiveSource(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE student_section_enrollments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transfer(context.Background(), "enr-gone", &models.SectionEnrollment{
		StudentID: "stu-1", SectionID: "sec-2", GradeID: "grade-1", AcademicSessionID: "sess-1",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryWithdraw(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE student_section_enrollments SET status`).
		WithArgs("enr-1", models.EnrollmentStatusWithdrawn, sqlmock.AnyArg(), models.EnrollmentStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Withdraw(context.Background(), "enr-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveBySection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "grade_id", "academic_session_id", "status", "enrolled_by", "enrolled_at", "effective_from", "effective_to", "notes"}).
		AddRow("enr-1", "stu-1", "sec-1", "grade-1", "sess-1", models.EnrollmentStatusActive, "actor-1", time.Now(), nil, nil, nil)
	mock.ExpectQuery(`SELECT .+ FROM student_section_enrollments WHERE section_id`).
		WithArgs("sec-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	roster, err := repo.ListActiveBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, "stu-1", roster[0].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
