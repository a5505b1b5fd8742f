package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/intern-tracker-api/internal/models"
)

func TestAttendanceListByRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendences a JOIN students st ON st.id = a.student_id WHERE a.student_id = $1 AND a.date >= $2 AND a.date <= $3 ORDER BY a.date DESC")).
		WithArgs("stu-1", "2026-10-01", "2026-10-31").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "date", "status", "check_in_time", "created_at", "updated_at", "student_name", "roll_no"}).
			AddRow("att-1", "stu-1", "2026-10-02", "late", "08:15:00", now, now, "Aye", "R-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendences a JOIN students st ON st.id = a.student_id WHERE a.student_id = $1")).
		WithArgs("stu-1", "2026-10-01", "2026-10-31").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.AttendanceFilter{StudentID: "stu-1", StartDate: "2026-10-01", EndDate: "2026-10-31"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AttendanceStatusLate, list[0].Status)
	require.NotNil(t, list[0].CheckInTime)
	assert.Equal(t, "08:15:00", *list[0].CheckInTime)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceExistsForDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM attendences WHERE student_id = $1 AND date = $2)")).
		WithArgs("stu-1", "2026-10-02").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForDay(context.Background(), "stu-1", "2026-10-02")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAttendanceUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	checkIn := "07:55:00"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE attendences SET status = $1, check_in_time = $2, updated_at = $3 WHERE id = $4")).
		WithArgs("present", checkIn, sqlmock.AnyArg(), "att-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &models.Attendance{ID: "att-1", Status: models.AttendanceStatusPresent, CheckInTime: &checkIn}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceDeleteByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM attendences WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteByStudentID(context.Background(), nil, "stu-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
