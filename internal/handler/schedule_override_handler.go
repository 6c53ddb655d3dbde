package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

type scheduleOverrideService interface {
	List(ctx context.Context, query dto.ScheduleOverrideQuery) ([]models.ScheduleOverride, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScheduleOverride, error)
	Create(ctx context.Context, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error)
	Update(ctx context.Context, id string, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error)
	Delete(ctx context.Context, id string) error
}

// ScheduleOverrideHandler manages date-specific exceptions.
type ScheduleOverrideHandler struct {
	service scheduleOverrideService
}

// NewScheduleOverrideHandler constructs the handler.
func NewScheduleOverrideHandler(svc scheduleOverrideService) *ScheduleOverrideHandler {
	return &ScheduleOverrideHandler{service: svc}
}

// List godoc
// @Summary List schedule overrides
// @Tags ScheduleOverrides
// @Produce json
// @Param subject_id query string false "Subject ID"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param date_from query string false "Range start (YYYY-MM-DD)"
// @Param date_to query string false "Range end (YYYY-MM-DD)"
// @Param is_cancelled query bool false "Cancelled only"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule-overrides [get]
func (h *ScheduleOverrideHandler) List(c *gin.Context) {
	var query dto.ScheduleOverrideQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	overrides, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, pagination)
}

// Get godoc
// @Summary Get a schedule override
// @Tags ScheduleOverrides
// @Produce json
// @Param id path string true "Override ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-overrides/{id} [get]
func (h *ScheduleOverrideHandler) Get(c *gin.Context) {
	override, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Create godoc
// @Summary Create a schedule override
// @Tags ScheduleOverrides
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule-overrides [post]
func (h *ScheduleOverrideHandler) Create(c *gin.Context) {
	var req dto.ScheduleOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule override payload"))
		return
	}
	override, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, override)
}

// Update godoc
// @Summary Replace a schedule override
// @Tags ScheduleOverrides
// @Accept json
// @Produce json
// @Param id path string true "Override ID"
// @Param payload body dto.ScheduleOverrideRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /schedule-overrides/{id} [put]
func (h *ScheduleOverrideHandler) Update(c *gin.Context) {
	var req dto.ScheduleOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule override payload"))
		return
	}
	override, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}

// Delete godoc
// @Summary Delete a schedule override
// @Tags ScheduleOverrides
// @Param id path string true "Override ID"
// @Success 204
// @Router /schedule-overrides/{id} [delete]
func (h *ScheduleOverrideHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
