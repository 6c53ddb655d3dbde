package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type generatorFixture struct {
	service *ScheduleGeneratorService
	catalog *fakeCatalog
	store   *memoryScheduleStore
	cache   *cacheInvalidatorStub
	mock    sqlmock.Sqlmock
}

func newGeneratorFixture(t *testing.T, catalog *fakeCatalog, rows ...models.SubjectSchedule) *generatorFixture {
	t.Helper()
	tx, mock := newTxProviderMock(t)
	store := newMemoryScheduleStore(rows...)
	for _, subject := range catalog.subjects {
		store.titles[subject.ID] = subject.Title
		store.rooms[subject.ID] = subject
	}
	cache := &cacheInvalidatorStub{}
	service := NewScheduleGeneratorService(
		catalog,
		store,
		NewScheduleConflictValidator(store, zap.NewNop()),
		tx,
		cache,
		NewMetricsService(),
		validator.New(),
		zap.NewNop(),
		ScheduleGeneratorConfig{MaxAttempts: 6, Seed: 1},
	)
	return &generatorFixture{service: service, catalog: catalog, store: store, cache: cache, mock: mock}
}

func singleGroupCatalog(days []models.Day, slots []models.TimeSlot, subjects ...models.Subject) *fakeCatalog {
	catalog := &fakeCatalog{
		days:   days,
		slots:  slots,
		groups: []models.Group{{ID: "g-1", Title: "CS-101", IsActive: true}},
	}
	for _, subject := range subjects {
		catalog.subjects = append(catalog.subjects, subject)
		catalog.curriculum = append(catalog.curriculum, models.CurriculumEntry{GroupID: "g-1", SubjectID: subject.ID})
	}
	return catalog
}

func TestScheduleGeneratorServiceGenerateSuccess(t *testing.T) {
	catalog := singleGroupCatalog(
		[]models.Day{monday, tuesday},
		[]models.TimeSlot{slotOne, slotTwo, slotThree, slotLate},
		subjectFixture("algebra", "r-1", "t-1"),
		subjectFixture("physics", "r-2", "t-2"),
		subjectFixture("history", "r-3", "t-3"),
	)
	fx := newGeneratorFixture(t, catalog)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		GroupIDs:   []string{"g-1"},
		TimeWindow: "morning",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.LessOrEqual(t, result.Attempts, 6)
	assert.Equal(t, dto.GenerationStatistics{TotalGroups: 1, TotalSubjects: 3, AssignedSubjects: 3, Conflicts: 0}, result.Statistics)
	assert.Contains(t, result.Messages, "Time window: 08:00 - 14:30")
	assert.Contains(t, result.Messages, "Available time slots: 3")
	assert.Contains(t, result.Messages, "Assigned slots: 3")
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	rows := fx.store.all()
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, []string{"g-1"}, []string(row.GroupIDs))
		assert.Len(t, row.TeacherIDs, 1)
		assert.Equal(t, models.WeekParityBoth, row.WeekParity)
		assert.NotEqual(t, slotLate.ID, row.TimeSlotID)
	}
	assert.Equal(t, []string{timetableCachePattern}, fx.cache.patterns)

	validation, err := fx.service.Validate(context.Background(), []string{"g-1"})
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
	assert.Equal(t, []string{"Schedule is valid, no conflicts found"}, validation.Conflicts)
}

func TestScheduleGeneratorServiceGenerateKeepsGroupsApart(t *testing.T) {
	catalog := &fakeCatalog{
		days:  []models.Day{monday},
		slots: []models.TimeSlot{slotOne, slotTwo, slotThree, slotLate},
		groups: []models.Group{
			{ID: "g-1", Title: "CS-101", IsActive: true},
			{ID: "g-2", Title: "CS-102", IsActive: true},
			{ID: "g-3", Title: "MA-201", IsActive: true},
		},
		subjects: []models.Subject{
			subjectFixture("lecture", "hall", "t-1"),
			subjectFixture("algebra", "r-1", "t-1"),
			subjectFixture("physics", "r-1", "t-1"),
			subjectFixture("history", "r-1", "t-2"),
		},
		curriculum: []models.CurriculumEntry{
			{GroupID: "g-1", SubjectID: "lecture"},
			{GroupID: "g-1", SubjectID: "algebra"},
			{GroupID: "g-2", SubjectID: "lecture"},
			{GroupID: "g-2", SubjectID: "physics"},
			{GroupID: "g-3", SubjectID: "history"},
		},
	}
	fx := newGeneratorFixture(t, catalog)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		GroupIDs:   []string{"g-1", "g-2", "g-3"},
		TimeWindow: "morning",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, dto.GenerationStatistics{TotalGroups: 3, TotalSubjects: 4, AssignedSubjects: 5}, result.Statistics)
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	rows := fx.store.all()
	require.Len(t, rows, 4)
	bySubject := make(map[string]models.SubjectSchedule, len(rows))
	for _, row := range rows {
		require.NotNil(t, row.RoomID)
		bySubject[row.SubjectID] = row
	}
	assert.ElementsMatch(t, []string{"g-1", "g-2"}, []string(bySubject["lecture"].GroupIDs))
	assert.Equal(t, []string{"t-1"}, []string(bySubject["lecture"].TeacherIDs))
	assert.Equal(t, "hall", *bySubject["lecture"].RoomID)

	for i, a := range rows {
		for _, b := range rows[i+1:] {
			if a.DayID != b.DayID || a.TimeSlotID != b.TimeSlotID {
				continue
			}
			for _, groupID := range a.GroupIDs {
				assert.False(t, b.HasGroup(groupID), "group %s booked twice in %s", groupID, a.TimeSlotID)
			}
			if a.SubjectID == b.SubjectID {
				continue
			}
			assert.NotEqual(t, *a.RoomID, *b.RoomID, "room shared by %s and %s", a.SubjectID, b.SubjectID)
			for _, teacherID := range a.TeacherIDs {
				assert.False(t, b.HasTeacher(teacherID), "teacher %s shared by %s and %s", teacherID, a.SubjectID, b.SubjectID)
			}
		}
	}

	validation, err := fx.service.Validate(context.Background(), []string{"g-1", "g-2", "g-3"})
	require.NoError(t, err)
	assert.True(t, validation.IsValid, "%v", validation.Conflicts)
}

func TestScheduleGeneratorServiceGenerateInfeasibleLeavesStoreUntouched(t *testing.T) {
	var subjects []models.Subject
	for i := 1; i <= 7; i++ {
		subjects = append(subjects, subjectFixture(fmt.Sprintf("s%d", i), "", ""))
	}
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne, slotTwo, slotLate}, subjects...)
	fx := newGeneratorFixture(t, catalog)

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		GroupIDs:   []string{"g-1"},
		TimeWindow: "morning",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 6, result.Attempts)
	assert.Zero(t, result.Statistics.AssignedSubjects)
	assert.Greater(t, result.Statistics.Conflicts, 0)
	assert.NotEmpty(t, result.Messages)
	assert.Contains(t, result.Messages, "Failed to generate a schedule in 6 attempts")
	assert.Empty(t, fx.store.all())
	assert.Empty(t, fx.cache.patterns)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceGenerateClearsExisting(t *testing.T) {
	catalog := singleGroupCatalog(
		[]models.Day{monday, tuesday},
		[]models.TimeSlot{slotOne, slotTwo},
		subjectFixture("algebra", "", "t-1"),
		subjectFixture("physics", "", "t-2"),
	)
	catalog.groups = append(catalog.groups, models.Group{ID: "g-2", Title: "CS-102", IsActive: true})
	fx := newGeneratorFixture(t, catalog,
		models.SubjectSchedule{ID: "old-algebra", SubjectID: "algebra", DayID: monday.ID, TimeSlotID: slotOne.ID, WeekParity: models.WeekParityBoth, GroupIDs: pq.StringArray{"g-1"}},
		models.SubjectSchedule{ID: "shared-physics", SubjectID: "physics", DayID: wednesday.ID, TimeSlotID: slotOne.ID, WeekParity: models.WeekParityBoth, GroupIDs: pq.StringArray{"g-1", "g-2"}},
	)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		GroupIDs:      []string{"g-1"},
		ClearExisting: true,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Contains(t, result.Messages, "Existing schedule cleared (deleted assignments: 1)")
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	_, err = fx.store.FindByID(context.Background(), nil, "old-algebra")
	assert.Error(t, err)
	shared, err := fx.store.FindByID(context.Background(), nil, "shared-physics")
	require.NoError(t, err)
	assert.Equal(t, []string{"g-2"}, []string(shared.GroupIDs))

	perSubject := make(map[string]int)
	for _, row := range fx.store.all() {
		if row.HasGroup("g-1") {
			perSubject[row.SubjectID]++
		}
	}
	assert.Equal(t, map[string]int{"algebra": 1, "physics": 1}, perSubject)
}

func TestScheduleGeneratorServiceGenerateAvoidsPersistedAssignments(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne, slotTwo}, subjectFixture("algebra", "r-1", ""))
	fx := newGeneratorFixture(t, catalog,
		models.SubjectSchedule{ID: "other", SubjectID: "chemistry", DayID: monday.ID, TimeSlotID: slotOne.ID, WeekParity: models.WeekParityEven, RoomID: strPtr("r-1"), GroupIDs: pq.StringArray{"g-9"}},
	)
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}})
	require.NoError(t, err)
	require.True(t, result.Success)

	for _, row := range fx.store.all() {
		if row.SubjectID == "algebra" {
			assert.Equal(t, slotTwo.ID, row.TimeSlotID)
		}
	}
}

func TestScheduleGeneratorServiceGenerateInputErrors(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne}, subjectFixture("algebra", "", ""))
	catalog.groups = append(catalog.groups, models.Group{ID: "g-empty", Title: "Empty", IsActive: true})
	fx := newGeneratorFixture(t, catalog)
	ctx := context.Background()

	_, err := fx.service.Generate(ctx, dto.GenerateScheduleRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"  "}, SubjectIDs: []string{"algebra"}})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"missing"}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"g-empty"}})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}, SubjectIDs: []string{"ghost"}})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}, StartTime: "09:00"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = fx.service.Generate(ctx, dto.GenerateScheduleRequest{GroupIDs: []string{"g-1"}, TimeWindow: "night"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceGenerateEmptyWindow(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne, slotTwo}, subjectFixture("algebra", "", ""))
	fx := newGeneratorFixture(t, catalog)

	result, err := fx.service.Generate(context.Background(), dto.GenerateScheduleRequest{
		GroupIDs:  []string{"g-1"},
		StartTime: "06:00",
		EndTime:   "07:00",
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Messages, "Available time slots: 0")
	assert.Contains(t, result.Messages, "No time slots or days are available, or the selected range is empty")
}

func TestScheduleGeneratorServiceStatistics(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne},
		subjectFixture("s1", "", ""), subjectFixture("s2", "", ""), subjectFixture("s3", "", ""), subjectFixture("s4", "", ""))
	row := func(id, subjectID, slotID string) models.SubjectSchedule {
		return models.SubjectSchedule{ID: id, SubjectID: subjectID, DayID: monday.ID, TimeSlotID: slotID, WeekParity: models.WeekParityBoth, GroupIDs: pq.StringArray{"g-1"}}
	}
	fx := newGeneratorFixture(t, catalog,
		row("a", "s1", "slot-1"), row("b", "s1", "slot-2"),
		row("c", "s2", "slot-3"), row("d", "s2", "slot-4"),
		row("e", "s3", "slot-5"),
	)

	stats, err := fx.service.Statistics(context.Background(), []string{"g-1"})
	require.NoError(t, err)
	assert.Equal(t, &dto.ScheduleStatistics{
		TotalGroups:             1,
		TotalSubjects:           4,
		SubjectsWithSchedule:    3,
		SubjectsWithoutSchedule: 1,
		TotalScheduleSlots:      5,
		AverageSlotsPerSubject:  1.25,
	}, stats)
	assert.InDelta(t, 75.0, stats.FillPercentage(), 0.001)
}

func TestScheduleGeneratorServiceStatisticsRoundsAverage(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne},
		subjectFixture("s1", "", ""), subjectFixture("s2", "", ""), subjectFixture("s3", "", ""))
	fx := newGeneratorFixture(t, catalog,
		models.SubjectSchedule{ID: "a", SubjectID: "s1", DayID: monday.ID, TimeSlotID: slotOne.ID, WeekParity: models.WeekParityBoth, GroupIDs: pq.StringArray{"g-1"}},
	)

	stats, err := fx.service.Statistics(context.Background(), []string{"g-1"})
	require.NoError(t, err)
	assert.Equal(t, 0.33, stats.AverageSlotsPerSubject)

	_, err = fx.service.Statistics(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestScheduleGeneratorServiceValidateReportsConflicts(t *testing.T) {
	catalog := singleGroupCatalog([]models.Day{monday}, []models.TimeSlot{slotOne}, subjectFixture("algebra", "", ""))
	fx := newGeneratorFixture(t, catalog,
		models.SubjectSchedule{ID: "a", SubjectID: "algebra", SubjectTitle: "Algebra", DayID: monday.ID, DayTitle: "Monday", TimeSlotID: slotOne.ID, TimeSlotNumber: 1, WeekParity: models.WeekParityBoth, GroupIDs: pq.StringArray{"g-1"}},
		models.SubjectSchedule{ID: "b", SubjectID: "elective", SubjectTitle: "Elective", DayID: monday.ID, DayTitle: "Monday", TimeSlotID: slotOne.ID, TimeSlotNumber: 1, WeekParity: models.WeekParityOdd, GroupIDs: pq.StringArray{"g-1"}},
	)

	result, err := fx.service.Validate(context.Background(), []string{"g-1"})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Conflicts, 2)
	assert.Contains(t, result.Conflicts[0], "Algebra on Monday, slot 1 (BOTH)")
	assert.Contains(t, result.Conflicts[0], "already attends Elective")
}
