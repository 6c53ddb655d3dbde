package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
)

type scheduleOverrideServiceMock struct {
	query   dto.ScheduleOverrideQuery
	created dto.ScheduleOverrideRequest
	updated string
}

func (m *scheduleOverrideServiceMock) List(ctx context.Context, query dto.ScheduleOverrideQuery) ([]models.ScheduleOverride, *models.Pagination, error) {
	m.query = query
	return []models.ScheduleOverride{{ID: "ovr-1"}}, &models.Pagination{Page: 2, PageSize: 10, TotalCount: 11, TotalPages: 2}, nil
}

func (m *scheduleOverrideServiceMock) Get(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	return &models.ScheduleOverride{ID: id}, nil
}

func (m *scheduleOverrideServiceMock) Create(ctx context.Context, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	m.created = req
	return &models.ScheduleOverride{ID: "ovr-1", SubjectID: req.SubjectID, IsCancelled: req.IsCancelled}, nil
}

func (m *scheduleOverrideServiceMock) Update(ctx context.Context, id string, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	m.updated = id
	return &models.ScheduleOverride{ID: id}, nil
}

func (m *scheduleOverrideServiceMock) Delete(ctx context.Context, id string) error {
	return nil
}

func TestScheduleOverrideHandlerListPassesFilters(t *testing.T) {
	svc := &scheduleOverrideServiceMock{}
	handler := NewScheduleOverrideHandler(svc)
	c, w := newTestContext(http.MethodGet, "/schedule-overrides?subject_id=algebra&is_cancelled=true&page=2&page_size=10", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "algebra", svc.query.SubjectID)
	assert.Equal(t, "true", svc.query.IsCancelled)
	assert.Equal(t, 2, svc.query.Page)
	pagination := decodeEnvelope(t, w)["pagination"].(map[string]interface{})
	assert.EqualValues(t, 11, pagination["total_count"])
}

func TestScheduleOverrideHandlerListRejectsBadPage(t *testing.T) {
	handler := NewScheduleOverrideHandler(&scheduleOverrideServiceMock{})
	c, w := newTestContext(http.MethodGet, "/schedule-overrides?page=first", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleOverrideHandlerCreateAndUpdate(t *testing.T) {
	svc := &scheduleOverrideServiceMock{}
	handler := NewScheduleOverrideHandler(svc)

	c, w := newTestContext(http.MethodPost, "/schedule-overrides", []byte(`{"subjectId":"algebra","date":"2026-03-02","timeSlotId":"slot-1","isCancelled":true}`))
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.created.IsCancelled)
	assert.Equal(t, "2026-03-02", svc.created.Date)

	c, w = newTestContext(http.MethodPut, "/schedule-overrides/ovr-1", []byte(`{"subjectId":"algebra","date":"2026-03-02","timeSlotId":"slot-1","roomId":"room-2"}`))
	c.AddParam("id", "ovr-1")
	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ovr-1", svc.updated)

	c, w = newTestContext(http.MethodPut, "/schedule-overrides/ovr-1", []byte(`[`))
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
