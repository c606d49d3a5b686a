package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const headerColumns = `institute_time_table_id, institute_id, session, year, visibility, current_status, break_start, break_end, created_at, updated_at`

// TimetableHeaderRepository persists tenant-scoped timetable headers.
type TimetableHeaderRepository struct {
	db *sqlx.DB
}

// NewTimetableHeaderRepository constructs repository.
func NewTimetableHeaderRepository(db *sqlx.DB) *TimetableHeaderRepository {
	return &TimetableHeaderRepository{db: db}
}

func (r *TimetableHeaderRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockInstitute takes a transaction-scoped advisory lock for the institute. Every
// write to an institute's timetables holds it, so writes of one tenant are serialized
// while other tenants proceed untouched. It must be called inside a transaction.
func (r *TimetableHeaderRepository) LockInstitute(ctx context.Context, exec sqlx.ExtContext, instituteID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, instituteID); err != nil {
		return fmt.Errorf("lock institute timetables: %w", err)
	}
	return nil
}

// FindByID loads a header by its tenant-scoped identity.
func (r *TimetableHeaderRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string) (*models.TimetableHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM timetable_headers WHERE institute_time_table_id = $1 AND institute_id = $2`
	var header models.TimetableHeader
	if err := sqlx.GetContext(ctx, r.exec(exec), &header, query, instituteTimeTableID, instituteID); err != nil {
		return nil, err
	}
	return &header, nil
}

// ListByInstitute returns all headers of the tenant, newest year and update first.
func (r *TimetableHeaderRepository) ListByInstitute(ctx context.Context, instituteID string) ([]models.TimetableHeader, error) {
	query := `SELECT ` + headerColumns + ` FROM timetable_headers WHERE institute_id = $1 ORDER BY year DESC, updated_at DESC`
	var headers []models.TimetableHeader
	if err := r.db.SelectContext(ctx, &headers, query, instituteID); err != nil {
		return nil, fmt.Errorf("list timetable headers: %w", err)
	}
	return headers, nil
}

// upsertHeaderQuery never writes current_status of an existing row; new rows start
// inactive. Only UpdateFlags and ClearCurrent change it.
const upsertHeaderQuery = `
INSERT INTO timetable_headers (institute_time_table_id, institute_id, session, year, visibility, current_status, break_start, break_end, created_at, updated_at)
VALUES (:institute_time_table_id, :institute_id, :session, :year, :visibility, FALSE, :break_start, :break_end, :created_at, :updated_at)
ON CONFLICT (institute_time_table_id, institute_id) DO UPDATE
SET session = EXCLUDED.session,
    year = EXCLUDED.year,
    visibility = EXCLUDED.visibility,
    break_start = EXCLUDED.break_start,
    break_end = EXCLUDED.break_end,
    updated_at = EXCLUDED.updated_at`

// Upsert inserts the header or overwrites the mutable fields of an existing one.
// current_status is left untouched.
func (r *TimetableHeaderRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, header *models.TimetableHeader) error {
	if header == nil {
		return fmt.Errorf("timetable header payload is nil")
	}
	now := time.Now().UTC()
	if header.CreatedAt.IsZero() {
		header.CreatedAt = now
	}
	header.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), upsertHeaderQuery, header); err != nil {
		return fmt.Errorf("upsert timetable header: %w", err)
	}
	return nil
}

// ClearCurrent unsets current_status on every other active header of the institute.
func (r *TimetableHeaderRepository) ClearCurrent(ctx context.Context, exec sqlx.ExtContext, instituteID string, exceptID int) (int64, error) {
	const query = `UPDATE timetable_headers SET current_status = FALSE, updated_at = $1
WHERE institute_id = $2 AND institute_time_table_id <> $3 AND current_status`
	result, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), instituteID, exceptID)
	if err != nil {
		return 0, fmt.Errorf("clear current timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear current rows affected: %w", err)
	}
	return affected, nil
}

// UpdateFlags applies the non-nil fields of patch to a header.
func (r *TimetableHeaderRepository) UpdateFlags(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string, patch models.HeaderPatch) error {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 5)
	if patch.Visibility != nil {
		args = append(args, *patch.Visibility)
		sets = append(sets, fmt.Sprintf("visibility = $%d", len(args)))
	}
	if patch.CurrentStatus != nil {
		args = append(args, *patch.CurrentStatus)
		sets = append(sets, fmt.Sprintf("current_status = $%d", len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, instituteTimeTableID, instituteID)

	query := fmt.Sprintf("UPDATE timetable_headers SET %s WHERE institute_time_table_id = $%d AND institute_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	result, err := r.exec(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update timetable header: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable header rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a header.
func (r *TimetableHeaderRepository) Delete(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string) error {
	const query = `DELETE FROM timetable_headers WHERE institute_time_table_id = $1 AND institute_id = $2`
	result, err := r.exec(exec).ExecContext(ctx, query, instituteTimeTableID, instituteID)
	if err != nil {
		return fmt.Errorf("delete timetable header: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable header rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
