package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/middleware"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

type timetableService interface {
	Rows(ctx context.Context, owner models.TimetableOwner, ownerID string) ([]models.TimetableRow, bool, error)
	Export(ctx context.Context, owner models.TimetableOwner, ownerID string, format service.TimetableFormat) (*service.TimetableExport, error)
}

// TimetableHandler serves flattened timetables and their exports.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Get godoc
// @Summary Timetable of a group, teacher or room
// @Tags Timetables
// @Produce json
// @Param owner path string true "group, teacher or room"
// @Param id path string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{owner}/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	rows, hit, err := h.service.Rows(c.Request.Context(), models.TimetableOwner(c.Param("owner")), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, rows, nil, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Export a timetable
// @Tags Timetables
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param owner path string true "group, teacher or room"
// @Param id path string true "Owner ID"
// @Param format query string false "pdf (default), xlsx or csv"
// @Success 200 {file} file
// @Router /timetables/{owner}/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := service.TimetableFormat(strings.ToLower(c.DefaultQuery("format", string(service.TimetableFormatPDF))))
	file, err := h.service.Export(c.Request.Context(), models.TimetableOwner(c.Param("owner")), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
