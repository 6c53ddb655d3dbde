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

type subjectScheduleService interface {
	Get(ctx context.Context, id string) (*models.SubjectSchedule, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectSchedule, error)
	Create(ctx context.Context, req dto.SubjectScheduleRequest) (*models.SubjectSchedule, error)
	Update(ctx context.Context, id string, req dto.SubjectScheduleRequest) (*models.SubjectSchedule, error)
	Delete(ctx context.Context, id string) error
	ClearGroup(ctx context.Context, req dto.ClearGroupScheduleRequest) (*dto.ClearGroupScheduleResult, error)
	FreeTimeSlots(ctx context.Context, query dto.FreeTimeSlotsQuery) ([]models.TimeSlot, error)
}

// SubjectScheduleHandler manages assignments by hand.
type SubjectScheduleHandler struct {
	service subjectScheduleService
}

// NewSubjectScheduleHandler constructs the handler.
func NewSubjectScheduleHandler(svc subjectScheduleService) *SubjectScheduleHandler {
	return &SubjectScheduleHandler{service: svc}
}

// List godoc
// @Summary List assignments of a subject
// @Tags SubjectSchedules
// @Produce json
// @Param subjectId query string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subject-schedules [get]
func (h *SubjectScheduleHandler) List(c *gin.Context) {
	subjectID := c.Query("subjectId")
	if subjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subjectId is required"))
		return
	}
	schedules, err := h.service.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get an assignment
// @Tags SubjectSchedules
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subject-schedules/{id} [get]
func (h *SubjectScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create an assignment
// @Description Rejected with 409 when a group, room or teacher would be double booked.
// @Tags SubjectSchedules
// @Accept json
// @Produce json
// @Param payload body dto.SubjectScheduleRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subject-schedules [post]
func (h *SubjectScheduleHandler) Create(c *gin.Context) {
	var req dto.SubjectScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject schedule payload"))
		return
	}
	schedule, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Replace an assignment
// @Tags SubjectSchedules
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.SubjectScheduleRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subject-schedules/{id} [put]
func (h *SubjectScheduleHandler) Update(c *gin.Context) {
	var req dto.SubjectScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subject schedule payload"))
		return
	}
	schedule, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Tags SubjectSchedules
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /subject-schedules/{id} [delete]
func (h *SubjectScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClearGroup godoc
// @Summary Remove a group from its assignments of the given subjects
// @Tags SubjectSchedules
// @Accept json
// @Produce json
// @Param payload body dto.ClearGroupScheduleRequest true "Clear payload"
// @Success 200 {object} response.Envelope
// @Router /subject-schedules/clear [post]
func (h *SubjectScheduleHandler) ClearGroup(c *gin.Context) {
	var req dto.ClearGroupScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clear schedule payload"))
		return
	}
	result, err := h.service.ClearGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// FreeSlots godoc
// @Summary Free time slots of a day
// @Tags SubjectSchedules
// @Produce json
// @Param dayId query string true "Day ID"
// @Param groupId query string false "Group ID"
// @Param teacherId query string false "Teacher ID"
// @Param roomId query string false "Room ID"
// @Param weekParity query string false "EVEN, ODD or BOTH"
// @Success 200 {object} response.Envelope
// @Router /subject-schedules/free-slots [get]
func (h *SubjectScheduleHandler) FreeSlots(c *gin.Context) {
	var query dto.FreeTimeSlotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid free slot query"))
		return
	}
	slots, err := h.service.FreeTimeSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
