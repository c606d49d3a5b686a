package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noah-isme/timetable-api/internal/models"
)

// FlexString accepts either a JSON string or a JSON number. Engine rows and some
// clients send identifiers and years as numbers.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying value.
func (f FlexString) String() string { return string(f) }

// CourseInput is a raw course as submitted by an admin. CreditHours may be a number or
// a numeric string and is validated by the request builder.
type CourseInput struct {
	ID          string      `json:"id"`
	Name        string      `json:"name" validate:"required"`
	Kind        string      `json:"kind" validate:"required"`
	CreditHours interface{} `json:"creditHours"`
}

// ClassInput is a class/section to schedule.
type ClassInput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name" validate:"required"`
	Strength int      `json:"strength" validate:"omitempty,min=0"`
	Courses  []string `json:"courses"`
}

// InstructorInput is an instructor available for scheduling.
type InstructorInput struct {
	ID      string   `json:"id"`
	Name    string   `json:"name" validate:"required"`
	Courses []string `json:"courses"`
}

// RoomInput is a room offered to the engine.
type RoomInput struct {
	RoomNumber string `json:"roomNumber" validate:"required"`
	RoomStatus string `json:"roomStatus" validate:"omitempty,oneof=Class Lab class lab CLASS LAB"`
	Capacity   int    `json:"capacity" validate:"omitempty,min=0"`
}

// BreakInput is the daily break window.
type BreakInput struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// GenerateTimetableRequest is the body of POST /generate.
type GenerateTimetableRequest struct {
	Session           string            `json:"session" validate:"required"`
	Year              FlexString        `json:"year" validate:"required"`
	Classes           []ClassInput      `json:"classes" validate:"dive"`
	Courses           []CourseInput     `json:"courses" validate:"dive"`
	Instructors       []InstructorInput `json:"instructors" validate:"dive"`
	Rooms             []RoomInput       `json:"rooms" validate:"dive"`
	Breaks            *BreakInput       `json:"breaks" validate:"omitempty"`
	AlgorithmVariants []string          `json:"algorithmVariants" validate:"omitempty,max=10,dive,required"`
}

// GenerateTimetableResponse carries the engine's candidate schedules.
type GenerateTimetableResponse struct {
	Candidates []models.Candidate `json:"candidates"`
}

// HeaderInput is the header half of a save payload.
type HeaderInput struct {
	InstituteTimeTableID int        `json:"instituteTimeTableID" validate:"gt=0"`
	Session              string     `json:"session"`
	Year                 FlexString `json:"year" validate:"required,max=16,excludes=:"`
	Visibility           bool       `json:"visibility"`
	CurrentStatus        bool       `json:"currentStatus"`
	BreakStart           *string    `json:"breakStart"`
	BreakEnd             *string    `json:"breakEnd"`
}

// DetailInput is one assignment row of a save payload.
type DetailInput struct {
	TimeTableID    FlexString `json:"timeTableID"`
	RoomNumber     string     `json:"roomNumber" validate:"required"`
	RoomType       string     `json:"roomType"`
	ClassName      string     `json:"className" validate:"required"`
	ClassID        string     `json:"classID"`
	CourseName     string     `json:"courseName" validate:"required"`
	CourseID       string     `json:"courseID"`
	Day            string     `json:"day" validate:"required"`
	Time           string     `json:"time" validate:"required"`
	InstructorName string     `json:"instructorName" validate:"required"`
	InstructorID   string     `json:"instructorID"`
	BreakStart     *string    `json:"breakStart"`
	BreakEnd       *string    `json:"breakEnd"`
}

// SaveTimetableRequest is the body of POST /save.
type SaveTimetableRequest struct {
	Header  HeaderInput   `json:"header"`
	Details []DetailInput `json:"details"`
}

// SaveTimetableResponse acknowledges a persisted timetable.
type SaveTimetableResponse struct {
	OK                   bool `json:"ok"`
	InstituteTimeTableID int  `json:"instituteTimeTableID"`
	Count                int  `json:"count"`
}

// ListTimetablesResponse lists an institute's headers.
type ListTimetablesResponse struct {
	Items []models.TimetableHeader `json:"items"`
}

// PatchHeaderRequest is the body of PATCH /header/:id.
type PatchHeaderRequest struct {
	Visibility    *bool `json:"visibility"`
	CurrentStatus *bool `json:"currentStatus"`
}

// PatchHeaderResponse returns the updated header.
type PatchHeaderResponse struct {
	Header models.TimetableHeader `json:"header"`
}

// DeleteTimetableResponse acknowledges a deletion.
type DeleteTimetableResponse struct {
	OK bool `json:"ok"`
}

// ConflictsPayload is the error detail returned for room-occupancy conflicts.
type ConflictsPayload struct {
	Conflicts []models.OccupancyViolation `json:"conflicts"`
}
