package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

func TestSchoolFindByNames(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schools WHERE name = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "teacher_name", "teacher_email", "created_at", "updated_at"}).
			AddRow("school-1", "NewU", "Default Teacher", nil, now, now))

	schools, err := repo.FindByNames(context.Background(), nil, []string{"NewU", "OldU"})
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Nil(t, schools[0].TeacherEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolFindByNamesEmptyInput(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	schools, err := repo.FindByNames(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, schools)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolCreateWithinTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schools").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	school := &models.School{Name: "NewU", TeacherName: models.DefaultTeacherName}
	require.NoError(t, repo.Create(context.Background(), tx, school))
	require.NoError(t, tx.Commit())
	assert.NotEmpty(t, school.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolTeacherEmailTaken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schools WHERE teacher_email = $1 AND id::text <> $2)")).
		WithArgs("t@example.com", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.TeacherEmailTaken(context.Background(), "t@example.com", "school-1")
	require.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schools WHERE id = $1")).
		WithArgs("school-x").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "school-x"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolListWithCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSchoolRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("AS employees_count\nFROM schools s ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "teacher_name", "teacher_email", "created_at", "updated_at", "students_count", "employees_count"}).
			AddRow("school-1", "NewU", "Daw Mya", "mya@example.com", now, now, 12, 4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schools s")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SchoolFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].StudentsCount)
	assert.Equal(t, 4, list[0].EmployeesCount)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
