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

var studentRowColumns = []string{"id", "school_id", "roll_no", "branch", "name", "email", "nrc_no", "phone", "major", "year", "iq_score", "created_at", "updated_at"}

func studentRow(id string, iq int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(studentRowColumns).
		AddRow(id, "school-1", "R-1", "Yangon", "Aye Aye", "aye@example.com", "12/ABC(N)123456", "0912345", "CS", "3", iq, now, now)
}

func TestStudentFindByNrcNo(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE nrc_no = $1 LIMIT 1")).
		WithArgs("12/ABC(N)123456").
		WillReturnRows(studentRow("stu-1", 72))

	student, err := repo.FindByNrcNo(context.Background(), nil, "12/ABC(N)123456")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student.ID)
	assert.Equal(t, 72, student.IQScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentFindByRollNoUsesTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE school_id = $1 AND year = $2 AND roll_no = $3 LIMIT 1")).
		WithArgs("school-1", "3", "R-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	_, err = repo.FindByRollNo(context.Background(), tx, "school-1", "3", "R-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentCreateAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{SchoolID: "school-1", Name: "Aye", IQScore: 60}
	require.NoError(t, repo.Create(context.Background(), nil, student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), nil, "ghost"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentListFiltersAndPaginates(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, studentRowColumns...), "school_name")).
		AddRow("stu-1", "school-1", "R-1", "Yangon", "Aye", "aye@example.com", "N1", "09", "CS", "3", 70, now, now, "NewU")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students s JOIN schools sc ON sc.id = s.school_id WHERE s.school_id = $1 AND (LOWER(s.name) LIKE $2")).
		WithArgs("school-1", "%aye%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s WHERE s.school_id = $1")).
		WithArgs("school-1", "%aye%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.StudentFilter{SchoolID: "school-1", Search: "Aye", SortBy: "iq_score; DROP"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "NewU", list[0].SchoolName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentTakenRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	_, err := repo.Taken(context.Background(), "password", "x", "")
	assert.Error(t, err)
}
