package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// detailInsertChunk keeps a single bulk insert well under the postgres bind parameter limit.
const detailInsertChunk = 500

const detailColumns = `id, partition_key, institute_time_table_id, institute_id, year, time_table_id, room_number, room_type, class_name, class_id, course_name, course_id, day, time, instructor_name, instructor_id, break_start, break_end, created_at`

// TimetableDetailRepository persists timetable rows grouped by partition key.
type TimetableDetailRepository struct {
	db *sqlx.DB
}

// NewTimetableDetailRepository constructs repository.
func NewTimetableDetailRepository(db *sqlx.DB) *TimetableDetailRepository {
	return &TimetableDetailRepository{db: db}
}

func (r *TimetableDetailRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteByPartition removes every row of the institute stored under the partition key.
func (r *TimetableDetailRepository) DeleteByPartition(ctx context.Context, exec sqlx.ExtContext, partitionKey, instituteID string) (int64, error) {
	result, err := r.exec(exec).ExecContext(ctx, `DELETE FROM timetable_details WHERE partition_key = $1 AND institute_id = $2`, partitionKey, instituteID)
	if err != nil {
		return 0, fmt.Errorf("delete timetable details: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("timetable details rows affected: %w", err)
	}
	return affected, nil
}

// InsertBatch stores rows in chunks. Missing IDs and timestamps are filled in place.
func (r *TimetableDetailRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableDetail) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	const query = `INSERT INTO timetable_details (` + detailColumns + `)
VALUES (:id, :partition_key, :institute_time_table_id, :institute_id, :year, :time_table_id, :room_number, :room_type, :class_name, :class_id, :course_name, :course_id, :day, :time, :instructor_name, :instructor_id, :break_start, :break_end, :created_at)`

	target := r.exec(exec)
	for start := 0; start < len(rows); start += detailInsertChunk {
		end := start + detailInsertChunk
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert timetable details: %w", err)
		}
	}
	return nil
}

// ListByPartition returns the institute's rows of one header version ordered for display.
func (r *TimetableDetailRepository) ListByPartition(ctx context.Context, partitionKey, instituteID string) ([]models.TimetableDetail, error) {
	query := `SELECT ` + detailColumns + ` FROM timetable_details WHERE partition_key = $1 AND institute_id = $2 ORDER BY day ASC, time ASC, room_number ASC`
	var details []models.TimetableDetail
	if err := r.db.SelectContext(ctx, &details, query, partitionKey, instituteID); err != nil {
		return nil, fmt.Errorf("list timetable details: %w", err)
	}
	return details, nil
}
