package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
)

type generationRequestBuilder interface {
	Build(ctx context.Context, instituteID string, req dto.GenerateTimetableRequest) (*models.GenerationRequest, error)
}

type schedulingEngine interface {
	Generate(ctx context.Context, req *models.GenerationRequest) ([]models.Candidate, error)
}

// GenerationService builds the engine payload and asks the engine for candidates.
// Nothing is persisted.
type GenerationService struct {
	builder generationRequestBuilder
	engine  schedulingEngine
	logger  *zap.Logger
}

// NewGenerationService constructs the service.
func NewGenerationService(builder generationRequestBuilder, engine schedulingEngine, logger *zap.Logger) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationService{builder: builder, engine: engine, logger: logger}
}

// Generate returns the engine's candidate schedules for the institute.
func (s *GenerationService) Generate(ctx context.Context, instituteID string, req dto.GenerateTimetableRequest) ([]models.Candidate, error) {
	payload, err := s.builder.Build(ctx, instituteID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("generation request built",
		zap.String("institute_id", instituteID),
		zap.Int("courses", len(payload.Courses)),
		zap.Int("timeslots", len(payload.Timeslots)),
		zap.Strings("variants", payload.AlgorithmVariants))
	return s.engine.Generate(ctx, payload)
}
