package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, instituteID string, req dto.GenerateTimetableRequest) ([]models.Candidate, error)
}

type timetableStore interface {
	Save(ctx context.Context, instituteID string, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error)
	List(ctx context.Context, instituteID string) ([]models.TimetableHeader, error)
	GetDetails(ctx context.Context, instituteID string, instituteTimeTableID int) (*models.TimetableWithDetails, error)
	PatchHeader(ctx context.Context, instituteID string, instituteTimeTableID int, patch models.HeaderPatch) (*models.TimetableHeader, error)
	Delete(ctx context.Context, instituteID string, instituteTimeTableID int, requesterRole models.UserRole) error
}

// TimetableHandler exposes timetable generation and storage endpoints.
type TimetableHandler struct {
	generator timetableGenerator
	store     timetableStore
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(generator *service.GenerationService, store *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{generator: generator, store: store}
}

// Generate godoc
// @Summary Request candidate timetables from the scheduling engine
// @Description Builds the engine payload from the submitted courses and the institute's time slots. Nothing is persisted.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation input"
// @Success 200 {object} response.Envelope{data=dto.GenerateTimetableResponse}
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate payload"))
		return
	}
	candidates, err := h.generator.Generate(c.Request.Context(), instituteID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.GenerateTimetableResponse{Candidates: candidates})
}

// Save godoc
// @Summary Save the chosen candidate
// @Description Rejects the whole payload when a Class room is booked twice in one slot; details.conflicts lists every clash.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.SaveTimetableRequest true "Header and rows"
// @Success 200 {object} response.Envelope{data=dto.SaveTimetableResponse}
// @Failure 400 {object} response.Envelope
// @Router /save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SaveTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload"))
		return
	}
	result, err := h.store.Save(c.Request.Context(), instituteID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, result.InstituteTimeTableID)
	response.OK(c, result)
}

// List godoc
// @Summary List saved timetables of the institute
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope{data=dto.ListTimetablesResponse}
// @Failure 400 {object} response.Envelope
// @Router /list [get]
func (h *TimetableHandler) List(c *gin.Context) {
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.store.List(c.Request.Context(), instituteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ListTimetablesResponse{Items: items})
}

// Details godoc
// @Summary Get a saved timetable with its rows
// @Tags Timetables
// @Produce json
// @Param id path int true "Institute timetable ID"
// @Success 200 {object} response.Envelope{data=models.TimetableWithDetails}
// @Failure 404 {object} response.Envelope
// @Router /details/{id} [get]
func (h *TimetableHandler) Details(c *gin.Context) {
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := timetableIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.store.GetDetails(c.Request.Context(), instituteID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// PatchHeader godoc
// @Summary Toggle visibility or make a timetable current
// @Description Making a timetable current clears the flag on every other timetable of the institute.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path int true "Institute timetable ID"
// @Param payload body dto.PatchHeaderRequest true "Flags"
// @Success 200 {object} response.Envelope{data=dto.PatchHeaderResponse}
// @Failure 404 {object} response.Envelope
// @Router /header/{id} [patch]
func (h *TimetableHandler) PatchHeader(c *gin.Context) {
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := timetableIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.PatchHeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid header payload"))
		return
	}
	header, err := h.store.PatchHeader(c.Request.Context(), instituteID, id, models.HeaderPatch{
		Visibility:    req.Visibility,
		CurrentStatus: req.CurrentStatus,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.PatchHeaderResponse{Header: *header})
}

// Delete godoc
// @Summary Delete a timetable and all of its rows
// @Tags Timetables
// @Produce json
// @Param id path int true "Institute timetable ID"
// @Success 200 {object} response.Envelope{data=dto.DeleteTimetableResponse}
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	// role is checked before the tenant so a non-admin always sees FORBIDDEN
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if models.NormalizeRole(string(claims.Role)) != models.RoleAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only admins may delete timetables"))
		return
	}
	instituteID, err := instituteFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := timetableIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Delete(c.Request.Context(), instituteID, id, claims.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.DeleteTimetableResponse{OK: true})
}
