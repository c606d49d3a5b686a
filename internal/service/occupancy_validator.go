package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type roomDirectory interface {
	ListByInstitute(ctx context.Context, instituteID string) ([]models.Room, error)
}

// OccupancyValidator enforces that a Class room hosts at most one row per day and time.
// Lab rooms may host several sections at once.
type OccupancyValidator struct {
	rooms  roomDirectory
	logger *zap.Logger
}

// NewOccupancyValidator constructs a validator backed by the room directory.
func NewOccupancyValidator(rooms roomDirectory, logger *zap.Logger) *OccupancyValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyValidator{rooms: rooms, logger: logger}
}

// Validate resolves room types for the institute and returns every occupancy violation.
func (v *OccupancyValidator) Validate(ctx context.Context, instituteID string, rows []models.TimetableDetail) ([]models.OccupancyViolation, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	roomTypes := map[string]models.RoomStatus{}
	if v.rooms != nil {
		rooms, err := v.rooms.ListByInstitute(ctx, instituteID)
		if err != nil {
			v.logger.Error("load rooms failed", zap.String("institute_id", instituteID), zap.Error(err))
			return nil, appErrors.Internal(err, "failed to load rooms")
		}
		for _, room := range rooms {
			roomTypes[strings.TrimSpace(room.RoomNumber)] = room.RoomStatus
		}
	}
	return FindOccupancyViolations(rows, roomTypes), nil
}

type occupancySlot struct {
	room string
	day  string
	time string
}

// FindOccupancyViolations groups rows by room, day and time in one pass. Each row beyond
// the first in a Class group is reported, in input order. A room's type comes from
// roomTypes, then the first row's roomType hint, and defaults to Class.
func FindOccupancyViolations(rows []models.TimetableDetail, roomTypes map[string]models.RoomStatus) []models.OccupancyViolation {
	type group struct {
		count  int
		status models.RoomStatus
	}
	groups := make(map[occupancySlot]*group, len(rows))
	var violations []models.OccupancyViolation

	for _, row := range rows {
		key := occupancySlot{
			room: strings.TrimSpace(row.RoomNumber),
			day:  strings.TrimSpace(row.Day),
			time: strings.TrimSpace(row.Time),
		}
		g, ok := groups[key]
		if !ok {
			g = &group{status: resolveRoomStatus(key.room, row.RoomType, roomTypes)}
			groups[key] = g
		}
		g.count++
		if g.count > 1 && g.status != models.RoomStatusLab {
			violations = append(violations, models.OccupancyViolation{RoomNumber: key.room, Day: key.day, Time: key.time})
		}
	}
	return violations
}

func resolveRoomStatus(room string, hint *string, roomTypes map[string]models.RoomStatus) models.RoomStatus {
	if status, ok := roomTypes[room]; ok {
		return status
	}
	if hint != nil && strings.TrimSpace(*hint) != "" {
		return models.ParseRoomStatus(*hint)
	}
	return models.RoomStatusClass
}
