package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RoomRepository reads institute rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListByInstitute returns every room registered for the tenant.
func (r *RoomRepository) ListByInstitute(ctx context.Context, instituteID string) ([]models.Room, error) {
	const query = `SELECT id, institute_id, room_number, room_status, created_at, updated_at
FROM rooms WHERE institute_id = $1 ORDER BY room_number ASC`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, instituteID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}
