package models

// CourseKind is the teaching format of a course.
type CourseKind string

const (
	CourseKindLecture CourseKind = "Lecture"
	CourseKindLab     CourseKind = "Lab"
)

// LabCreditHours is the fixed credit load of every lab course.
const LabCreditHours = 3

// Course is a normalised course as sent to the scheduling engine.
type Course struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Kind        CourseKind `json:"kind"`
	CreditHours int        `json:"creditHours"`
}

// ClassGroup is a class/section to be scheduled.
type ClassGroup struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Strength int      `json:"strength,omitempty"`
	Courses  []string `json:"courses,omitempty"`
}

// Instructor is a staff member available to the engine.
type Instructor struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Courses []string `json:"courses,omitempty"`
}

// EngineRoom is a room as sent to the scheduling engine.
type EngineRoom struct {
	RoomNumber string     `json:"roomNumber"`
	RoomStatus RoomStatus `json:"roomStatus"`
	Capacity   int        `json:"capacity,omitempty"`
}

// TimeWindow is a weekly teaching window keyed by a 3-letter day code.
type TimeWindow struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// BreakWindow is the daily break excluded from scheduling.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GenerationRequest is the normalised payload sent to the scheduling engine. It is
// rebuilt on every call and never stored.
type GenerationRequest struct {
	InstituteID       string       `json:"instituteID"`
	Session           string       `json:"session"`
	Year              string       `json:"year"`
	Classes           []ClassGroup `json:"classes"`
	Courses           []Course     `json:"courses"`
	Instructors       []Instructor `json:"instructors"`
	Rooms             []EngineRoom `json:"rooms"`
	Timeslots         []TimeWindow `json:"timeslots"`
	Breaks            *BreakWindow `json:"breaks,omitempty"`
	AlgorithmVariants []string     `json:"algorithmVariants"`
}
