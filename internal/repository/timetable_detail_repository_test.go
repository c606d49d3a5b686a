package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTimetableDetailRepositoryDeleteByPartition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_details WHERE partition_key = $1 AND institute_id = $2")).
		WithArgs("inst-1:7:2024", "inst-1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	affected, err := repo.DeleteByPartition(context.Background(), nil, "inst-1:7:2024", "inst-1")
	require.NoError(t, err)
	assert.EqualValues(t, 12, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDetailRepositoryInsertBatchFillsIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_details")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	rows := []models.TimetableDetail{
		{PartitionKey: "inst-1:7:2024", InstituteTimeTableID: 7, InstituteID: "inst-1", RoomNumber: "A-101", Day: "Mon", Time: "08:00-09:00"},
		{ID: "fixed", PartitionKey: "inst-1:7:2024", InstituteTimeTableID: 7, InstituteID: "inst-1", RoomNumber: "A-102", Day: "Mon", Time: "08:00-09:00"},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, rows))
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, "fixed", rows[1].ID)
	assert.False(t, rows[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDetailRepositoryInsertBatchChunks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_details")).
		WillReturnResult(sqlmock.NewResult(0, detailInsertChunk))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_details")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := make([]models.TimetableDetail, detailInsertChunk+1)
	for i := range rows {
		rows[i] = models.TimetableDetail{PartitionKey: "p", RoomNumber: "R", Day: "Mon", Time: "08:00"}
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDetailRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDetailRepositoryListByPartition(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	now := time.Now()
	columns := []string{"id", "partition_key", "institute_time_table_id", "institute_id", "year", "time_table_id", "room_number", "room_type", "class_name", "class_id", "course_name", "course_id", "day", "time", "instructor_name", "instructor_id", "break_start", "break_end", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("d-1", "inst-1:7:2024", 7, "inst-1", "2024", "tt-1", "A-101", "Class", "CS-1", nil, "Algorithms", "c-1", "Mon", "08:00-09:00", "Dr. Lee", nil, nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_details WHERE partition_key = $1 AND institute_id = $2 ORDER BY day ASC, time ASC, room_number ASC")).
		WithArgs("inst-1:7:2024", "inst-1").
		WillReturnRows(rows)

	details, err := repo.ListByPartition(context.Background(), "inst-1:7:2024", "inst-1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Algorithms", details[0].CourseName)
	require.NotNil(t, details[0].RoomType)
	assert.Equal(t, "Class", *details[0].RoomType)
	assert.Nil(t, details[0].ClassID)
	require.NotNil(t, details[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableDetailRepositoryListByPartitionScopesTenant(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableDetailRepository(db)

	// a key forged with another tenant's prefix still only matches rows of the caller
	mock.ExpectQuery(regexp.QuoteMeta("WHERE partition_key = $1 AND institute_id = $2")).
		WithArgs("inst-2:7:2024", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	details, err := repo.ListByPartition(context.Background(), "inst-2:7:2024", "inst-1")
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.NoError(t, mock.ExpectationsWereMet())
}
