package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type generationRunnerMock struct {
	captured dto.GenerateScheduleRequest
	result   *dto.GenerationResult
	err      error
}

func (m *generationRunnerMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error) {
	m.captured = req
	return m.result, m.err
}

type scheduleInspectorMock struct {
	groupIDs []string
	stats    *dto.ScheduleStatistics
}

func (m *scheduleInspectorMock) Validate(ctx context.Context, groupIDs []string) (*dto.ValidationResult, error) {
	m.groupIDs = groupIDs
	return &dto.ValidationResult{IsValid: true, Conflicts: []string{}}, nil
}

func (m *scheduleInspectorMock) Statistics(ctx context.Context, groupIDs []string) (*dto.ScheduleStatistics, error) {
	m.groupIDs = groupIDs
	return m.stats, nil
}

func (m *scheduleInspectorMock) TimeWindows() []service.TimeWindow {
	return []service.TimeWindow{{Name: "morning"}, {Name: "full"}}
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestScheduleGeneratorHandlerGenerate(t *testing.T) {
	runner := &generationRunnerMock{result: &dto.GenerationResult{Success: true, Attempts: 1}}
	handler := NewScheduleGeneratorHandler(runner, &scheduleInspectorMock{})
	c, w := newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"groupIds":["g-1"],"timeWindow":"morning","clearExisting":true}`))

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"g-1"}, runner.captured.GroupIDs)
	assert.Equal(t, "morning", runner.captured.TimeWindow)
	assert.True(t, runner.captured.ClearExisting)
	assert.True(t, runner.captured.MorningPreferred())
}

func TestScheduleGeneratorHandlerGenerateInfeasibleIsNotAnError(t *testing.T) {
	runner := &generationRunnerMock{result: &dto.GenerationResult{
		Success:  false,
		Attempts: 50,
		Messages: []string{"Failed to generate schedule after 50 attempts"},
	}}
	handler := NewScheduleGeneratorHandler(runner, &scheduleInspectorMock{})
	c, w := newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"groupIds":["g-1"]}`))

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["success"])
	assert.EqualValues(t, 50, data["attempts"])
}

func TestScheduleGeneratorHandlerGenerateErrors(t *testing.T) {
	handler := NewScheduleGeneratorHandler(&generationRunnerMock{}, &scheduleInspectorMock{})
	c, w := newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"groupIds":`))
	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	runner := &generationRunnerMock{err: appErrors.Clone(appErrors.ErrNotFound, "group not found")}
	handler = NewScheduleGeneratorHandler(runner, &scheduleInspectorMock{})
	c, w = newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"groupIds":["missing"]}`))
	handler.Generate(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errBody["code"])
}

func TestScheduleGeneratorHandlerValidateRequiresGroups(t *testing.T) {
	inspector := &scheduleInspectorMock{}
	handler := NewScheduleGeneratorHandler(&generationRunnerMock{}, inspector)

	c, w := newTestContext(http.MethodGet, "/schedules/validate", nil)
	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/schedules/validate?groupIds=%20,%20", nil)
	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/schedules/validate?groupIds=g-1,%20g-2", nil)
	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"g-1", "g-2"}, inspector.groupIDs)
}

func TestScheduleGeneratorHandlerStatistics(t *testing.T) {
	inspector := &scheduleInspectorMock{stats: &dto.ScheduleStatistics{
		TotalGroups:             1,
		TotalSubjects:           4,
		SubjectsWithSchedule:    3,
		SubjectsWithoutSchedule: 1,
		TotalScheduleSlots:      5,
		AverageSlotsPerSubject:  1.25,
	}}
	handler := NewScheduleGeneratorHandler(&generationRunnerMock{}, inspector)
	c, w := newTestContext(http.MethodGet, "/schedules/statistics?groupIds=g-1", nil)

	handler.Statistics(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 5, data["totalScheduleSlots"])
	meta := body["meta"].(map[string]interface{})
	assert.EqualValues(t, 75, meta["fill_percentage"])
}

func TestScheduleGeneratorHandlerTimeWindows(t *testing.T) {
	handler := NewScheduleGeneratorHandler(&generationRunnerMock{}, &scheduleInspectorMock{})
	c, w := newTestContext(http.MethodGet, "/schedules/time-windows", nil)

	handler.TimeWindows(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].([]interface{})
	assert.Len(t, data, 2)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
