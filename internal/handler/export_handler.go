package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableExporter interface {
	Export(ctx context.Context, instituteID string, instituteTimeTableID int, format string) (*service.ExportFile, error)
}

// ExportHandler serves timetable downloads.
type ExportHandler struct {
	exporter timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(exporter *service.ExportService) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Export godoc
// @Summary Download a saved timetable as a day by time grid
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Institute timetable ID"
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/{id} [get]
func (h *ExportHandler) Export(c *gin.Context) {
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
	file, err := h.exporter.Export(c.Request.Context(), instituteID, id, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
