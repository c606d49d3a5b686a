package models

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableHeader is one saved timetable version for an institute. At most one header
// per institute carries CurrentStatus = true.
type TimetableHeader struct {
	InstituteTimeTableID int       `db:"institute_time_table_id" json:"instituteTimeTableID"`
	InstituteID          string    `db:"institute_id" json:"instituteID"`
	Session              string    `db:"session" json:"session"`
	Year                 string    `db:"year" json:"year"`
	Visibility           bool      `db:"visibility" json:"visibility"`
	CurrentStatus        bool      `db:"current_status" json:"currentStatus"`
	BreakStart           *string   `db:"break_start" json:"breakStart,omitempty"`
	BreakEnd             *string   `db:"break_end" json:"breakEnd,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time `db:"updated_at" json:"updatedAt"`
}

// PartitionKey returns the key shared by every detail row of this header version.
func (h TimetableHeader) PartitionKey() string {
	return PartitionKey(h.InstituteTimeTableID, h.InstituteID, h.Year)
}

// PartitionKey derives the detail-row partition for a header identity and year.
func PartitionKey(instituteTimeTableID int, instituteID, year string) string {
	return fmt.Sprintf("%s:%d:%s", instituteID, instituteTimeTableID, year)
}

// TimetableDetail is one room/day/time assignment inside a saved timetable. The *ID
// fields reference the originating entities; the names are display copies.
type TimetableDetail struct {
	ID                   string    `db:"id" json:"id"`
	PartitionKey         string    `db:"partition_key" json:"-"`
	InstituteTimeTableID int       `db:"institute_time_table_id" json:"instituteTimeTableID"`
	InstituteID          string    `db:"institute_id" json:"instituteID"`
	Year                 string    `db:"year" json:"year"`
	TimeTableID          string    `db:"time_table_id" json:"timeTableID"`
	RoomNumber           string    `db:"room_number" json:"roomNumber"`
	RoomType             *string   `db:"room_type" json:"roomType,omitempty"`
	ClassName            string    `db:"class_name" json:"className"`
	ClassID              *string   `db:"class_id" json:"classID,omitempty"`
	CourseName           string    `db:"course_name" json:"courseName"`
	CourseID             *string   `db:"course_id" json:"courseID,omitempty"`
	Day                  string    `db:"day" json:"day"`
	Time                 string    `db:"time" json:"time"`
	InstructorName       string    `db:"instructor_name" json:"instructorName"`
	InstructorID         *string   `db:"instructor_id" json:"instructorID,omitempty"`
	BreakStart           *string   `db:"break_start" json:"breakStart,omitempty"`
	BreakEnd             *string   `db:"break_end" json:"breakEnd,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
}

// TimetableWithDetails bundles a header with its full row set.
type TimetableWithDetails struct {
	Header  TimetableHeader   `json:"header"`
	Details []TimetableDetail `json:"details"`
}

// HeaderPatch carries the optional flags accepted by a header update.
type HeaderPatch struct {
	Visibility    *bool
	CurrentStatus *bool
}

// Empty reports whether the patch changes nothing.
func (p HeaderPatch) Empty() bool {
	return p.Visibility == nil && p.CurrentStatus == nil
}

// OccupancyViolation identifies a non-lab room booked more than once in a slot.
type OccupancyViolation struct {
	RoomNumber string `json:"roomNumber"`
	Day        string `json:"day"`
	Time       string `json:"time"`
}

// Candidate is one complete schedule proposed by the scheduling engine. Its header and
// rows are passed through to the client untouched.
type Candidate struct {
	Header  types.JSONText   `json:"header"`
	Details []types.JSONText `json:"details"`
}
