package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/collegesync/collegesync-api/internal/models"
)

func newAppointmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAppointmentRepositoryFindStatusByName(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow("st-1", "pending")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM appointment_statuses WHERE name = $1 LIMIT 1")).
		WithArgs("pending").
		WillReturnRows(rows)

	status, err := repo.FindStatusByName(context.Background(), "pending")
	require.NoError(t, err)
	require.Equal(t, "st-1", status.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	appt := &models.Appointment{
		Description: "Thesis review",
		ScheduledAt: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		StatusID:    "st-1",
		SubjectID:   "sub-1",
		TeacherID:   "tea-1",
	}
	require.NoError(t, repo.Create(context.Background(), appt))
	require.NotEmpty(t, appt.ID)
	require.False(t, appt.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	studentID := "stu-1"
	rows := sqlmock.NewRows([]string{"id", "description", "scheduled_at", "notes", "subject_name", "student_name", "teacher_name", "status", "student_id", "teacher_id"}).
		AddRow("app-1", "Thesis review", time.Now(), "bring draft", "Algebra", "Alice Johnson", "Dr. Brown", "pending", studentID, "tea-1")
	mock.ExpectQuery("FROM appointments a").
		WithArgs("app-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "app-1")
	require.NoError(t, err)
	require.Equal(t, "Algebra", detail.SubjectName)
	require.NotNil(t, detail.StudentID)
	require.Equal(t, "stu-1", *detail.StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE id = $1")).
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "app-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListForStudent(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	owner := "stu-1"
	rows := sqlmock.NewRows([]string{"id", "description", "scheduled_at", "subject_name", "student_id"}).
		AddRow("app-1", "Thesis review", time.Now(), "Algebra", owner).
		AddRow("app-2", "Office hours", time.Now(), "Algebra", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ss.student_id = $1 OR a.student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	list, err := repo.ListForStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Nil(t, list[1].StudentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryListForAdmin(t *testing.T) {
	db, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	name := "Alice Johnson"
	rows := sqlmock.NewRows([]string{"id", "description", "scheduled_at", "subject_name", "student_name"}).
		AddRow("app-1", "Thesis review", time.Now(), "Algebra", name)
	mock.ExpectQuery(regexp.QuoteMeta("u.full_name AS student_name")).
		WillReturnRows(rows)

	list, err := repo.ListForAdmin(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Alice Johnson", *list[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
