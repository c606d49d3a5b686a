package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimeSlotRepository reads an institute's weekly teaching windows.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListByInstitute returns every stored time slot for the tenant.
func (r *TimeSlotRepository) ListByInstitute(ctx context.Context, instituteID string) ([]models.TimeSlot, error) {
	const query = `SELECT id, institute_id, day, start_time, end_time, created_at, updated_at
FROM time_slots WHERE institute_id = $1 ORDER BY day ASC, start_time ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, instituteID); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
