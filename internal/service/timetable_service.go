package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/database"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type timetableHeaderRepository interface {
	LockInstitute(ctx context.Context, exec sqlx.ExtContext, instituteID string) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string) (*models.TimetableHeader, error)
	ListByInstitute(ctx context.Context, instituteID string) ([]models.TimetableHeader, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, header *models.TimetableHeader) error
	ClearCurrent(ctx context.Context, exec sqlx.ExtContext, instituteID string, exceptID int) (int64, error)
	UpdateFlags(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string, patch models.HeaderPatch) error
	Delete(ctx context.Context, exec sqlx.ExtContext, instituteTimeTableID int, instituteID string) error
}

type timetableDetailRepository interface {
	DeleteByPartition(ctx context.Context, exec sqlx.ExtContext, partitionKey, instituteID string) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.TimetableDetail) error
	ListByPartition(ctx context.Context, partitionKey, instituteID string) ([]models.TimetableDetail, error)
}

type occupancyChecker interface {
	Validate(ctx context.Context, instituteID string, rows []models.TimetableDetail) ([]models.OccupancyViolation, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Generation(ctx context.Context, instituteID string) (int64, error)
	InvalidateInstitute(ctx context.Context, instituteID string) error
}

// TimetableServiceConfig bounds accepted payloads.
type TimetableServiceConfig struct {
	MaxDetailRows int
}

// TimetableService persists validated timetables per institute. Every write runs in one
// transaction holding the institute's advisory lock, so writes of a tenant are serialized
// and at most one header per institute is current.
type TimetableService struct {
	headers   timetableHeaderRepository
	details   timetableDetailRepository
	occupancy occupancyChecker
	db        database.TxBeginner
	cache     timetableCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig
}

// NewTimetableService wires store dependencies.
func NewTimetableService(
	headers timetableHeaderRepository,
	details timetableDetailRepository,
	occupancy occupancyChecker,
	db database.TxBeginner,
	cache timetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxDetailRows <= 0 {
		cfg.MaxDetailRows = 5000
	}
	return &TimetableService{
		headers:   headers,
		details:   details,
		occupancy: occupancy,
		db:        db,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Save validates the chosen candidate and replaces the header's row set. It never
// changes currentStatus: new headers start inactive and existing ones keep their flag
// until PatchHeader changes it.
func (s *TimetableService) Save(ctx context.Context, instituteID string, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if strings.TrimSpace(instituteID) == "" {
		return nil, appErrors.ErrTenantRequired
	}
	// year is part of the partition key, so it must be present and free of the separator
	req.Header.Year = dto.FlexString(strings.TrimSpace(req.Header.Year.String()))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	if len(req.Details) > s.cfg.MaxDetailRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d detail rows are accepted", s.cfg.MaxDetailRows))
	}

	header := models.TimetableHeader{
		InstituteTimeTableID: req.Header.InstituteTimeTableID,
		InstituteID:          instituteID,
		Session:              strings.TrimSpace(req.Header.Session),
		Year:                 req.Header.Year.String(),
		Visibility:           req.Header.Visibility,
		BreakStart:           optionalString(req.Header.BreakStart),
		BreakEnd:             optionalString(req.Header.BreakEnd),
	}
	rows, err := buildDetailRows(header, req.Details)
	if err != nil {
		return nil, err
	}

	violations, err := s.occupancy.Validate(ctx, instituteID, rows)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		s.metrics.RecordConflicts(len(violations))
		s.metrics.RecordSave("conflict")
		return nil, appErrors.WithDetails(appErrors.ErrRoomConflict, map[string]interface{}{"conflicts": violations})
	}

	start := time.Now()
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.headers.LockInstitute(ctx, tx, instituteID); err != nil {
			return err
		}
		existing, err := s.headers.FindByID(ctx, tx, header.InstituteTimeTableID, instituteID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if existing != nil {
			header.CreatedAt = existing.CreatedAt
			header.CurrentStatus = existing.CurrentStatus
			if oldKey := existing.PartitionKey(); oldKey != header.PartitionKey() {
				if _, err := s.details.DeleteByPartition(ctx, tx, oldKey, instituteID); err != nil {
					return err
				}
			}
		}
		if err := s.headers.Upsert(ctx, tx, &header); err != nil {
			return err
		}
		if _, err := s.details.DeleteByPartition(ctx, tx, header.PartitionKey(), instituteID); err != nil {
			return err
		}
		return s.details.InsertBatch(ctx, tx, rows)
	})
	s.metrics.ObserveDBQuery("timetable_save", time.Since(start))
	if err != nil {
		s.metrics.RecordSave("error")
		s.logger.Error("save timetable failed",
			zap.String("institute_id", instituteID),
			zap.Int("institute_time_table_id", header.InstituteTimeTableID),
			zap.Error(err))
		return nil, appErrors.Internal(err, "failed to save timetable")
	}

	s.metrics.RecordSave("saved")
	s.invalidate(ctx, instituteID)
	s.logger.Info("timetable saved",
		zap.String("institute_id", instituteID),
		zap.Int("institute_time_table_id", header.InstituteTimeTableID),
		zap.String("partition_key", header.PartitionKey()),
		zap.Int("rows", len(rows)),
		zap.Bool("current", header.CurrentStatus))

	return &dto.SaveTimetableResponse{OK: true, InstituteTimeTableID: header.InstituteTimeTableID, Count: len(rows)}, nil
}

// List returns the institute's headers, newest year and update first.
func (s *TimetableService) List(ctx context.Context, instituteID string) ([]models.TimetableHeader, error) {
	if strings.TrimSpace(instituteID) == "" {
		return nil, appErrors.ErrTenantRequired
	}
	gen, cacheable := s.cacheGeneration(ctx, instituteID)
	key := TimetableListCacheKey(instituteID, gen)
	var cached []models.TimetableHeader
	if cacheable && s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	headers, err := s.headers.ListByInstitute(ctx, instituteID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list timetables")
	}
	if headers == nil {
		headers = []models.TimetableHeader{}
	}
	if cacheable {
		s.cacheSet(ctx, key, headers)
	}
	return headers, nil
}

// GetDetails returns one header with every row of its partition.
func (s *TimetableService) GetDetails(ctx context.Context, instituteID string, instituteTimeTableID int) (*models.TimetableWithDetails, error) {
	if strings.TrimSpace(instituteID) == "" {
		return nil, appErrors.ErrTenantRequired
	}
	gen, cacheable := s.cacheGeneration(ctx, instituteID)
	key := TimetableDetailsCacheKey(instituteID, gen, instituteTimeTableID)
	var cached models.TimetableWithDetails
	if cacheable && s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	header, err := s.findHeader(ctx, nil, instituteID, instituteTimeTableID)
	if err != nil {
		return nil, err
	}
	rows, err := s.details.ListByPartition(ctx, header.PartitionKey(), instituteID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load timetable rows")
	}
	if rows == nil {
		rows = []models.TimetableDetail{}
	}
	result := &models.TimetableWithDetails{Header: *header, Details: rows}
	if cacheable {
		s.cacheSet(ctx, key, result)
	}
	return result, nil
}

// PatchHeader updates visibility and current status. Setting currentStatus to true
// clears it on every other header of the institute in the same transaction.
func (s *TimetableService) PatchHeader(ctx context.Context, instituteID string, instituteTimeTableID int, patch models.HeaderPatch) (*models.TimetableHeader, error) {
	if strings.TrimSpace(instituteID) == "" {
		return nil, appErrors.ErrTenantRequired
	}

	var updated *models.TimetableHeader
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.headers.LockInstitute(ctx, tx, instituteID); err != nil {
			return err
		}
		header, err := s.findHeader(ctx, tx, instituteID, instituteTimeTableID)
		if err != nil {
			return err
		}
		if patch.Empty() {
			updated = header
			return nil
		}
		if patch.CurrentStatus != nil && *patch.CurrentStatus {
			if _, err := s.headers.ClearCurrent(ctx, tx, instituteID, instituteTimeTableID); err != nil {
				return err
			}
		}
		if err := s.headers.UpdateFlags(ctx, tx, instituteTimeTableID, instituteID, patch); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
			}
			return err
		}
		updated, err = s.findHeader(ctx, tx, instituteID, instituteTimeTableID)
		return err
	})
	if err != nil {
		return nil, s.storeError(err, "failed to update timetable header", instituteID, instituteTimeTableID)
	}

	if !patch.Empty() {
		s.invalidate(ctx, instituteID)
		s.logger.Info("timetable header updated",
			zap.String("institute_id", instituteID),
			zap.Int("institute_time_table_id", instituteTimeTableID),
			zap.Bool("visibility", updated.Visibility),
			zap.Bool("current", updated.CurrentStatus))
	}
	return updated, nil
}

// Delete removes a header and every row of its partition. Only admins may delete.
func (s *TimetableService) Delete(ctx context.Context, instituteID string, instituteTimeTableID int, requesterRole models.UserRole) error {
	if models.NormalizeRole(string(requesterRole)) != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may delete timetables")
	}
	if strings.TrimSpace(instituteID) == "" {
		return appErrors.ErrTenantRequired
	}

	var removed int64
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.headers.LockInstitute(ctx, tx, instituteID); err != nil {
			return err
		}
		header, err := s.findHeader(ctx, tx, instituteID, instituteTimeTableID)
		if err != nil {
			return err
		}
		if removed, err = s.details.DeleteByPartition(ctx, tx, header.PartitionKey(), instituteID); err != nil {
			return err
		}
		if err := s.headers.Delete(ctx, tx, instituteTimeTableID, instituteID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return s.storeError(err, "failed to delete timetable", instituteID, instituteTimeTableID)
	}

	s.invalidate(ctx, instituteID)
	s.logger.Info("timetable deleted",
		zap.String("institute_id", instituteID),
		zap.Int("institute_time_table_id", instituteTimeTableID),
		zap.Int64("rows", removed))
	return nil
}

func (s *TimetableService) findHeader(ctx context.Context, exec sqlx.ExtContext, instituteID string, instituteTimeTableID int) (*models.TimetableHeader, error) {
	header, err := s.headers.FindByID(ctx, exec, instituteTimeTableID, instituteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Internal(err, "failed to load timetable")
	}
	return header, nil
}

// storeError passes typed errors through and wraps anything else as internal.
func (s *TimetableService) storeError(err error, message, instituteID string, instituteTimeTableID int) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code {
		return appErr
	}
	s.logger.Error(message,
		zap.String("institute_id", instituteID),
		zap.Int("institute_time_table_id", instituteTimeTableID),
		zap.Error(err))
	return appErrors.Internal(err, message)
}

// cacheGeneration must be read before the store so a snapshot is never filed under a
// generation newer than the rows it holds.
func (s *TimetableService) cacheGeneration(ctx context.Context, instituteID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, instituteID)
	if err != nil {
		return 0, false
	}
	return gen, true
}

func (s *TimetableService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *TimetableService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func (s *TimetableService) invalidate(ctx context.Context, instituteID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateInstitute(ctx, instituteID); err != nil {
		s.logger.Error("cache invalidation failed, stale reads possible until ttl expiry",
			zap.String("institute_id", instituteID),
			zap.Error(err))
	}
}

var requiredDetailFields = []string{"roomNumber", "className", "courseName", "day", "time", "instructorName"}

// buildDetailRows checks every row before anything is written and stamps it with the
// header's partition.
func buildDetailRows(header models.TimetableHeader, inputs []dto.DetailInput) ([]models.TimetableDetail, error) {
	rows := make([]models.TimetableDetail, 0, len(inputs))
	partitionKey := header.PartitionKey()
	for i, input := range inputs {
		values := []string{
			strings.TrimSpace(input.RoomNumber),
			strings.TrimSpace(input.ClassName),
			strings.TrimSpace(input.CourseName),
			strings.TrimSpace(input.Day),
			strings.TrimSpace(input.Time),
			strings.TrimSpace(input.InstructorName),
		}
		for j, value := range values {
			if value == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("details[%d].%s is required", i, requiredDetailFields[j]))
			}
		}
		rows = append(rows, models.TimetableDetail{
			PartitionKey:         partitionKey,
			InstituteTimeTableID: header.InstituteTimeTableID,
			InstituteID:          header.InstituteID,
			Year:                 header.Year,
			TimeTableID:          input.TimeTableID.String(),
			RoomNumber:           values[0],
			RoomType:             optionalString(&input.RoomType),
			ClassName:            values[1],
			ClassID:              optionalString(&input.ClassID),
			CourseName:           values[2],
			CourseID:             optionalString(&input.CourseID),
			Day:                  values[3],
			Time:                 values[4],
			InstructorName:       values[5],
			InstructorID:         optionalString(&input.InstructorID),
			BreakStart:           optionalString(input.BreakStart),
			BreakEnd:             optionalString(input.BreakEnd),
		})
	}
	return rows, nil
}

func optionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
