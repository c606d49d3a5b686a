package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimeSlotRepositoryListByInstitute(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "institute_id", "day", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("slot-1", "inst-1", "Monday", "08:00", "14:00", now, now).
		AddRow("slot-2", "inst-1", "Tuesday", "08:00", "12:00", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE institute_id = $1")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	slots, err := repo.ListByInstitute(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "Monday", slots[0].Day)
	assert.Equal(t, "12:00", slots[1].EndTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListByInstituteError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots")).WillReturnError(errors.New("db down"))

	_, err := repo.ListByInstitute(context.Background(), "inst-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list time slots")
}

func TestRoomRepositoryListByInstitute(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "institute_id", "room_number", "room_status", "created_at", "updated_at"}).
		AddRow("room-1", "inst-1", "A-101", "Class", now, now).
		AddRow("room-2", "inst-1", "L-1", "Lab", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE institute_id = $1 ORDER BY room_number ASC")).
		WithArgs("inst-1").
		WillReturnRows(rows)

	rooms, err := repo.ListByInstitute(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomStatusLab, rooms[1].RoomStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
