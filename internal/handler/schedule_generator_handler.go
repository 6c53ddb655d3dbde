package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/response"
)

type scheduleGenerationRunner interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error)
}

type scheduleInspector interface {
	Validate(ctx context.Context, groupIDs []string) (*dto.ValidationResult, error)
	Statistics(ctx context.Context, groupIDs []string) (*dto.ScheduleStatistics, error)
	TimeWindows() []service.TimeWindow
}

// ScheduleGeneratorHandler exposes generation, validation and statistics.
type ScheduleGeneratorHandler struct {
	runner    scheduleGenerationRunner
	inspector scheduleInspector
}

// NewScheduleGeneratorHandler constructs the handler. Generation goes through
// runner so concurrent requests are serialized.
func NewScheduleGeneratorHandler(runner scheduleGenerationRunner, inspector scheduleInspector) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{runner: runner, inspector: inspector}
}

// Generate godoc
// @Summary Generate a conflict-free timetable for groups
// @Description Places every (subject, group) obligation or reports why it could not. An infeasible run returns success=false and leaves storage untouched.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.runner.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Validate godoc
// @Summary Validate persisted assignments of groups
// @Tags Scheduler
// @Produce json
// @Param groupIds query string true "Comma separated group IDs"
// @Success 200 {object} response.Envelope
// @Router /schedule/validate [get]
func (h *ScheduleGeneratorHandler) Validate(c *gin.Context) {
	groupIDs, ok := bindGroupIDs(c)
	if !ok {
		return
	}
	result, err := h.inspector.Validate(c.Request.Context(), groupIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Statistics godoc
// @Summary Schedule fill statistics of groups
// @Tags Scheduler
// @Produce json
// @Param groupIds query string true "Comma separated group IDs"
// @Success 200 {object} response.Envelope
// @Router /schedule/statistics [get]
func (h *ScheduleGeneratorHandler) Statistics(c *gin.Context) {
	groupIDs, ok := bindGroupIDs(c)
	if !ok {
		return
	}
	stats, err := h.inspector.Statistics(c.Request.Context(), groupIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, map[string]interface{}{"fill_percentage": stats.FillPercentage()})
}

// TimeWindows godoc
// @Summary List named time windows
// @Tags Scheduler
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/time-windows [get]
func (h *ScheduleGeneratorHandler) TimeWindows(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.inspector.TimeWindows(), nil)
}

func bindGroupIDs(c *gin.Context) ([]string, bool) {
	var query dto.GroupIDsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "groupIds is required"))
		return nil, false
	}
	ids := query.IDs()
	if len(ids) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "groupIds is required"))
		return nil, false
	}
	return ids, true
}
