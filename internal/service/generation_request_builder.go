package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// maxCreditHours bounds lecture credit hours so flooring never overflows.
const maxCreditHours = 1000

var weekdayCodes = map[string]string{
	"monday":    "Mon",
	"tuesday":   "Tue",
	"wednesday": "Wed",
	"thursday":  "Thu",
	"friday":    "Fri",
	"saturday":  "Sat",
	"sunday":    "Sun",
}

var weekdayOrder = map[string]int{"Mon": 0, "Tue": 1, "Wed": 2, "Thu": 3, "Fri": 4, "Sat": 5, "Sun": 6}

type timeSlotReader interface {
	ListByInstitute(ctx context.Context, instituteID string) ([]models.TimeSlot, error)
}

// GenerationRequestBuilder normalises admin input and the institute's time slots into
// the payload expected by the scheduling engine.
type GenerationRequestBuilder struct {
	slots           timeSlotReader
	validator       *validator.Validate
	defaultVariants []string
	logger          *zap.Logger
}

// NewGenerationRequestBuilder constructs a builder.
func NewGenerationRequestBuilder(slots timeSlotReader, validate *validator.Validate, defaultVariants []string, logger *zap.Logger) *GenerationRequestBuilder {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationRequestBuilder{
		slots:           slots,
		validator:       validate,
		defaultVariants: append([]string(nil), defaultVariants...),
		logger:          logger,
	}
}

// Build validates req and returns the engine payload for the institute.
func (b *GenerationRequestBuilder) Build(ctx context.Context, instituteID string, req dto.GenerateTimetableRequest) (*models.GenerationRequest, error) {
	if strings.TrimSpace(instituteID) == "" {
		return nil, appErrors.ErrTenantRequired
	}
	req = trimGenerateRequest(req)
	if err := b.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload")
	}
	if len(req.Courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}

	courses := make([]models.Course, 0, len(req.Courses))
	for _, input := range req.Courses {
		course, err := normalizeCourse(input)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}

	slots, err := b.slots.ListByInstitute(ctx, instituteID)
	if err != nil {
		b.logger.Error("load time slots failed", zap.String("institute_id", instituteID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load time slots")
	}
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no time slots defined")
	}

	out := &models.GenerationRequest{
		InstituteID:       instituteID,
		Session:           strings.TrimSpace(req.Session),
		Year:              req.Year.String(),
		Classes:           make([]models.ClassGroup, 0, len(req.Classes)),
		Courses:           courses,
		Instructors:       make([]models.Instructor, 0, len(req.Instructors)),
		Rooms:             make([]models.EngineRoom, 0, len(req.Rooms)),
		Timeslots:         TimeWindowsFromSlots(slots),
		AlgorithmVariants: req.AlgorithmVariants,
	}
	if len(out.AlgorithmVariants) == 0 {
		out.AlgorithmVariants = append([]string(nil), b.defaultVariants...)
	}
	for _, class := range req.Classes {
		out.Classes = append(out.Classes, models.ClassGroup{
			ID:       class.ID,
			Name:     strings.TrimSpace(class.Name),
			Strength: class.Strength,
			Courses:  class.Courses,
		})
	}
	for _, instructor := range req.Instructors {
		out.Instructors = append(out.Instructors, models.Instructor{
			ID:      instructor.ID,
			Name:    strings.TrimSpace(instructor.Name),
			Courses: instructor.Courses,
		})
	}
	for _, room := range req.Rooms {
		out.Rooms = append(out.Rooms, models.EngineRoom{
			RoomNumber: strings.TrimSpace(room.RoomNumber),
			RoomStatus: models.ParseRoomStatus(room.RoomStatus),
			Capacity:   room.Capacity,
		})
	}
	if req.Breaks != nil {
		out.Breaks = &models.BreakWindow{Start: req.Breaks.Start, End: req.Breaks.End}
	}

	return out, nil
}

func normalizeCourse(input dto.CourseInput) (models.Course, error) {
	name := strings.TrimSpace(input.Name)
	course := models.Course{ID: input.ID, Name: name}

	switch {
	case strings.EqualFold(strings.TrimSpace(input.Kind), string(models.CourseKindLab)):
		course.Kind = models.CourseKindLab
		course.CreditHours = models.LabCreditHours
	case strings.EqualFold(strings.TrimSpace(input.Kind), string(models.CourseKindLecture)):
		hours, ok := parseCreditHours(input.CreditHours)
		if !ok {
			return models.Course{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s missing/invalid creditHours", name))
		}
		course.Kind = models.CourseKindLecture
		course.CreditHours = hours
	default:
		return models.Course{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s has unknown kind %q", name, input.Kind))
	}
	return course, nil
}

// parseCreditHours accepts a JSON number or numeric string, finite and at least 1,
// and floors it.
func parseCreditHours(raw interface{}) (int, bool) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case int:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		value = f
	default:
		return 0, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 1 || value > maxCreditHours {
		return 0, false
	}
	return int(math.Floor(value)), true
}

// trimGenerateRequest returns a copy of req with names trimmed, so blank values fail the
// required tags instead of reaching the engine.
func trimGenerateRequest(req dto.GenerateTimetableRequest) dto.GenerateTimetableRequest {
	req.Session = strings.TrimSpace(req.Session)
	req.Courses = append([]dto.CourseInput(nil), req.Courses...)
	for i := range req.Courses {
		req.Courses[i].Name = strings.TrimSpace(req.Courses[i].Name)
		req.Courses[i].Kind = strings.TrimSpace(req.Courses[i].Kind)
	}
	req.Classes = append([]dto.ClassInput(nil), req.Classes...)
	for i := range req.Classes {
		req.Classes[i].Name = strings.TrimSpace(req.Classes[i].Name)
	}
	req.Instructors = append([]dto.InstructorInput(nil), req.Instructors...)
	for i := range req.Instructors {
		req.Instructors[i].Name = strings.TrimSpace(req.Instructors[i].Name)
	}
	req.Rooms = append([]dto.RoomInput(nil), req.Rooms...)
	for i := range req.Rooms {
		req.Rooms[i].RoomNumber = strings.TrimSpace(req.Rooms[i].RoomNumber)
	}
	if req.Breaks != nil {
		breaks := *req.Breaks
		breaks.Start = strings.TrimSpace(breaks.Start)
		breaks.End = strings.TrimSpace(breaks.End)
		req.Breaks = &breaks
	}
	return req
}

// ShortDay maps a full weekday name to its 3-letter code. Unknown names are returned unchanged.
func ShortDay(day string) string {
	if code, ok := weekdayCodes[strings.ToLower(strings.TrimSpace(day))]; ok {
		return code
	}
	return day
}

// TimeWindowsFromSlots converts stored slots into engine windows in weekday order.
func TimeWindowsFromSlots(slots []models.TimeSlot) []models.TimeWindow {
	windows := make([]models.TimeWindow, 0, len(slots))
	for _, slot := range slots {
		windows = append(windows, models.TimeWindow{
			Day:   ShortDay(slot.Day),
			Start: slot.StartTime,
			End:   slot.EndTime,
		})
	}
	sort.SliceStable(windows, func(i, j int) bool {
		oi, iok := weekdayOrder[windows[i].Day]
		oj, jok := weekdayOrder[windows[j].Day]
		if !iok {
			oi = len(weekdayOrder)
		}
		if !jok {
			oj = len(weekdayOrder)
		}
		if oi != oj {
			return oi < oj
		}
		return windows[i].Start < windows[j].Start
	})
	return windows
}
