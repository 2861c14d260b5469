package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

func TestAdmissionRepositoryListActiveStudentIDsByGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	rows := sqlmock.NewRows([]string{"student_id"}).AddRow("stu-1").AddRow("stu-3")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id FROM student_admissions WHERE grade_id = $1 AND status = $2")).
		WithArgs("grade-1", models.AdmissionStatusActive).
		WillReturnRows(rows)

	ids, err := repo.ListActiveStudentIDsByGrade(context.Background(), "grade-1")
	require.NoError(t, err)
	require.Equal(t, []string{"stu-1", "stu-3"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryListActiveStudentIDsEmptyGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	ids, err := repo.ListActiveStudentIDsByGrade(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryUpdateStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	mock.ExpectExec(`UPDATE student_admissions SET status`).
		WithArgs("adm-gone", models.AdmissionStatusInactive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "adm-gone", models.AdmissionStatusInactive)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmissionRepositoryExistsActiveOrPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAdmissionRepository(db)

	rows := sqlmock.NewRows([]string{"?column?"}).AddRow(1)
	mock.ExpectQuery(`SELECT 1 FROM student_admissions`).
		WithArgs("stu-1", "grade-1", models.AdmissionStatusPending, models.AdmissionStatusActive).
		WillReturnRows(rows)

	exists, err := repo.ExistsActiveOrPending(context.Background(), "stu-1", "grade-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
