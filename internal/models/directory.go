package models

import (
	"strings"
	"time"
)

// RoomStatus distinguishes rooms that host one class per slot from labs that may host
// several sections concurrently.
type RoomStatus string

const (
	RoomStatusClass RoomStatus = "Class"
	RoomStatusLab   RoomStatus = "Lab"
)

// ParseRoomStatus normalises free-form room types; anything that is not a lab is a class.
func ParseRoomStatus(raw string) RoomStatus {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoomStatusLab)) {
		return RoomStatusLab
	}
	return RoomStatusClass
}

// Room is an institute room record.
type Room struct {
	ID          string     `db:"id" json:"id"`
	InstituteID string     `db:"institute_id" json:"instituteID"`
	RoomNumber  string     `db:"room_number" json:"roomNumber"`
	RoomStatus  RoomStatus `db:"room_status" json:"roomStatus"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// TimeSlot is an institute's stored weekly teaching window for one weekday.
type TimeSlot struct {
	ID          string    `db:"id" json:"id"`
	InstituteID string    `db:"institute_id" json:"instituteID"`
	Day         string    `db:"day" json:"day"`
	StartTime   string    `db:"start_time" json:"startTime"`
	EndTime     string    `db:"end_time" json:"endTime"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
