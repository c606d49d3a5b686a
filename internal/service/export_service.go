package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/export"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const exportTimeColumn = "Time"

type timetableReader interface {
	GetDetails(ctx context.Context, instituteID string, instituteTimeTableID int) (*models.TimetableWithDetails, error)
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders saved timetables as day by time grids.
type ExportService struct {
	timetables timetableReader
	renderers  func(export.Format) (export.Renderer, error)
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetables timetableReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetables: timetables, renderers: export.ForFormat, logger: logger}
}

// Export renders one saved timetable in the requested format.
func (s *ExportService) Export(ctx context.Context, instituteID string, instituteTimeTableID int, format string) (*ExportFile, error) {
	renderer, err := s.renderers(export.Format(strings.ToLower(strings.TrimSpace(format))))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be one of csv, pdf, xlsx")
	}

	timetable, err := s.timetables.GetDetails(ctx, instituteID, instituteTimeTableID)
	if err != nil {
		return nil, err
	}

	dataset := BuildTimetableGrid(*timetable)
	body, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("render timetable export failed",
			zap.String("institute_id", instituteID),
			zap.Int("institute_time_table_id", instituteTimeTableID),
			zap.String("format", renderer.Extension()),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render export")
	}

	name := fmt.Sprintf("timetable-%d", instituteTimeTableID)
	if year := strings.TrimSpace(timetable.Header.Year); year != "" {
		name += "-" + year
	}
	return &ExportFile{
		Filename:    name + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// BuildTimetableGrid lays rows out with one line per time and one column per day.
// Several assignments in the same cell are joined by newlines.
func BuildTimetableGrid(timetable models.TimetableWithDetails) export.Dataset {
	header := timetable.Header
	title := fmt.Sprintf("Timetable %d", header.InstituteTimeTableID)
	if session := strings.TrimSpace(header.Session + " " + header.Year); session != "" {
		title += " - " + session
	}

	daySet := map[string]struct{}{}
	timeSet := map[string]struct{}{}
	cells := map[string]map[string][]string{}
	for _, row := range timetable.Details {
		day := ShortDay(row.Day)
		daySet[day] = struct{}{}
		timeSet[row.Time] = struct{}{}
		if cells[row.Time] == nil {
			cells[row.Time] = map[string][]string{}
		}
		cells[row.Time][day] = append(cells[row.Time][day], describeAssignment(row))
	}

	days := make([]string, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		oi, iok := weekdayOrder[days[i]]
		oj, jok := weekdayOrder[days[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return days[i] < days[j]
		}
	})

	times := make([]string, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Strings(times)

	dataset := export.Dataset{
		Title:   title,
		Headers: append([]string{exportTimeColumn}, days...),
		Rows:    make([]map[string]string, 0, len(times)),
	}
	for _, t := range times {
		row := map[string]string{exportTimeColumn: t}
		for _, day := range days {
			row[day] = strings.Join(cells[t][day], "\n")
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}

func describeAssignment(row models.TimetableDetail) string {
	return fmt.Sprintf("%s (%s) - %s @ %s", row.CourseName, row.ClassName, row.InstructorName, row.RoomNumber)
}
