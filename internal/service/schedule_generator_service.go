package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type generatorCatalog interface {
	ListDays(ctx context.Context) ([]models.Day, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	FindGroupsByIDs(ctx context.Context, ids []string) ([]models.Group, error)
	FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
	ListCurriculum(ctx context.Context, groupIDs []string) ([]models.CurriculumEntry, error)
}

type groupScheduleClearer interface {
	ListByGroupAndSubjects(ctx context.Context, exec sqlx.ExtContext, groupID string, subjectIDs []string) ([]models.SubjectSchedule, error)
	DetachGroup(ctx context.Context, exec sqlx.ExtContext, scheduleID, groupID string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type generatorScheduleStore interface {
	groupScheduleClearer
	ListBySlots(ctx context.Context, exec sqlx.ExtContext, dayIDs, timeSlotIDs []string) ([]models.SubjectSchedule, error)
	ListBySubjects(ctx context.Context, exec sqlx.ExtContext, subjectIDs []string) ([]models.SubjectSchedule, error)
	ListSubjectIDsByGroups(ctx context.Context, groupIDs []string) ([]string, error)
	CountBySubjects(ctx context.Context, subjectIDs []string) (map[string]int, error)
	GetOrCreate(ctx context.Context, exec sqlx.ExtContext, key models.SubjectScheduleKey) (string, bool, error)
	AttachGroups(ctx context.Context, exec sqlx.ExtContext, scheduleID string, groupIDs []string) error
	AttachTeachers(ctx context.Context, exec sqlx.ExtContext, scheduleID string, teacherIDs []string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleConflictCollector interface {
	Collect(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.ScheduleConflict, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	MaxAttempts int
	// Seed fixes the shuffle order of every run; zero seeds from the clock.
	Seed int64
}

// ScheduleGeneratorService searches for conflict-free placements of
// (subject, group) obligations and writes them in a single transaction.
type ScheduleGeneratorService struct {
	catalog   generatorCatalog
	schedules generatorScheduleStore
	conflicts scheduleConflictCollector
	tx        txProvider
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	catalog generatorCatalog,
	schedules generatorScheduleStore,
	conflicts scheduleConflictCollector,
	tx txProvider,
	cache cacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultGenerationAttempts
	}
	return &ScheduleGeneratorService{
		catalog:   catalog,
		schedules: schedules,
		conflicts: conflicts,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// TimeWindows lists the named time window presets.
func (s *ScheduleGeneratorService) TimeWindows() []TimeWindow {
	return AvailableTimeWindows()
}

func (s *ScheduleGeneratorService) newRand() *rand.Rand {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate places the obligations of the requested groups. Input problems are
// returned as errors before any search; an exhausted attempt budget is a
// result with Success false and leaves storage untouched.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error) {
	started := time.Now()
	result, err := s.generate(ctx, req)
	if err != nil {
		s.metrics.ObserveGenerationError()
		return nil, err
	}
	s.metrics.ObserveGeneration(result.Success, result.Attempts, result.Statistics.Conflicts, result.Statistics.AssignedSubjects, time.Since(started))
	return result, nil
}

func (s *ScheduleGeneratorService) generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}
	window, err := ResolveTimeWindow(req.TimeWindow, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	groups, err := s.loadGroups(ctx, req.GroupIDs)
	if err != nil {
		return nil, err
	}
	obligations, subjectCount, err := s.loadObligations(ctx, groups, req.SubjectIDs)
	if err != nil {
		return nil, err
	}
	if len(obligations) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no subjects to schedule for the selected groups")
	}

	days, err := s.catalog.ListDays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load days")
	}
	slots, err := s.catalog.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	days, dayLabel, err := filterDays(days, DayRange{StartDayID: req.StartDayID, EndDayID: req.EndDayID})
	if err != nil {
		return nil, err
	}

	result := &dto.GenerationResult{
		Statistics: dto.GenerationStatistics{TotalGroups: len(groups), TotalSubjects: subjectCount},
	}
	result.Messages = append(result.Messages,
		fmt.Sprintf("Generating schedule for groups: %s", groupTitles(groups)),
		fmt.Sprintf("Total subjects: %d", subjectCount),
	)
	if window != nil {
		result.Messages = append(result.Messages, fmt.Sprintf("Time window: %s - %s", window.StartTime, window.EndTime))
	}
	if dayLabel != "" {
		result.Messages = append(result.Messages, dayLabel)
	}

	pool := buildCandidatePool(days, slots, window, req.MorningPreferred())
	if window != nil {
		result.Messages = append(result.Messages, fmt.Sprintf("Available time slots: %d", countUsableSlots(slots, window)))
	}
	if len(pool) == 0 {
		result.Messages = append(result.Messages, "No time slots or days are available, or the selected range is empty")
		return result, nil
	}
	result.Messages = append(result.Messages,
		fmt.Sprintf("Total candidate slots (day+time): %d", len(pool)),
		fmt.Sprintf("Total obligations to place: %d", len(obligations)),
	)

	seeds, err := s.loadSeeds(ctx, pool, obligations, req.ClearExisting)
	if err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.MaxAttempts
	}
	outcome := newGenerationSearch(obligations, pool, seeds, maxAttempts, s.newRand()).run()
	result.Attempts = outcome.Attempts

	if !outcome.Success {
		result.Statistics.Conflicts = outcome.Conflicts
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to generate a schedule in %d attempts", maxAttempts))
		result.Messages = append(result.Messages, outcome.ConflictLog...)
		s.logger.Info("schedule generation infeasible",
			zap.Strings("group_ids", req.GroupIDs),
			zap.Int("obligations", len(obligations)),
			zap.Int("candidates", len(pool)),
			zap.Int("conflicts", outcome.Conflicts))
		return result, nil
	}
	result.Messages = append(result.Messages, fmt.Sprintf("Schedule generated in %d attempts", outcome.Attempts))

	cleared, err := s.persist(ctx, groups, obligations, outcome.Placements, req.ClearExisting)
	if err != nil {
		return nil, err
	}
	if req.ClearExisting {
		result.Messages = append(result.Messages, fmt.Sprintf("Existing schedule cleared (deleted assignments: %d)", cleared))
	}

	result.Success = true
	result.Statistics.AssignedSubjects = len(outcome.Placements)
	result.Messages = append(result.Messages,
		"Schedule written to storage",
		fmt.Sprintf("Assigned slots: %d", len(outcome.Placements)),
	)
	s.invalidateTimetables(ctx)

	s.logger.Info("schedule generated",
		zap.Strings("group_ids", req.GroupIDs),
		zap.Int("attempts", outcome.Attempts),
		zap.Int("placements", len(outcome.Placements)))
	return result, nil
}

func (s *ScheduleGeneratorService) loadGroups(ctx context.Context, ids []string) ([]models.Group, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one group id is required")
	}
	found, err := s.catalog.FindGroupsByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	index := make(map[string]models.Group, len(found))
	for _, group := range found {
		index[group.ID] = group
	}
	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		group, ok := index[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("group %s not found or inactive", id))
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// loadObligations pairs every group with the explicit subjects, or with its
// curriculum subjects when none are given.
func (s *ScheduleGeneratorService) loadObligations(ctx context.Context, groups []models.Group, subjectIDs []string) ([]Obligation, int, error) {
	perGroup := make(map[string][]string, len(groups))
	subjectIDs = uniqueStrings(subjectIDs)
	if len(subjectIDs) > 0 {
		for _, group := range groups {
			perGroup[group.ID] = subjectIDs
		}
	} else {
		entries, err := s.catalog.ListCurriculum(ctx, groupIDs(groups))
		if err != nil {
			return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
		}
		for _, entry := range entries {
			perGroup[entry.GroupID] = append(perGroup[entry.GroupID], entry.SubjectID)
		}
		for _, list := range perGroup {
			subjectIDs = append(subjectIDs, list...)
		}
		subjectIDs = uniqueStrings(subjectIDs)
	}
	if len(subjectIDs) == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrPreconditionFailed, "no subjects to schedule for the selected groups")
	}

	subjects, err := s.catalog.FindSubjectsByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	if len(subjects) != len(subjectIDs) {
		return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "one or more subjects not found")
	}
	index := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		index[subject.ID] = subject
	}

	var obligations []Obligation
	for _, group := range groups {
		for _, subjectID := range perGroup[group.ID] {
			obligations = append(obligations, Obligation{Subject: index[subjectID], Group: group})
		}
	}
	return obligations, len(subjectIDs), nil
}

// loadSeeds reads the assignments already occupying candidate slots. When
// clearing, memberships that the run is about to remove are left out.
func (s *ScheduleGeneratorService) loadSeeds(ctx context.Context, pool []CandidateSlot, obligations []Obligation, clearing bool) ([]models.SubjectSchedule, error) {
	var dayIDs, slotIDs []string
	for _, candidate := range pool {
		dayIDs = append(dayIDs, candidate.Day.ID)
		slotIDs = append(slotIDs, candidate.TimeSlot.ID)
	}
	existing, err := s.schedules.ListBySlots(ctx, nil, uniqueStrings(dayIDs), uniqueStrings(slotIDs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing schedule")
	}
	if !clearing {
		return existing, nil
	}

	cleared := make(map[string]map[string]bool)
	for _, obligation := range obligations {
		if cleared[obligation.Group.ID] == nil {
			cleared[obligation.Group.ID] = make(map[string]bool)
		}
		cleared[obligation.Group.ID][obligation.Subject.ID] = true
	}

	seeds := make([]models.SubjectSchedule, 0, len(existing))
	for _, assignment := range existing {
		var kept []string
		for _, groupID := range assignment.GroupIDs {
			if !cleared[groupID][assignment.SubjectID] {
				kept = append(kept, groupID)
			}
		}
		if len(kept) == 0 && len(assignment.GroupIDs) > 0 {
			continue
		}
		assignment.GroupIDs = kept
		seeds = append(seeds, assignment)
	}
	return seeds, nil
}

// persist clears the requested memberships and writes every placement in one
// transaction. It returns how many assignments clearing deleted.
func (s *ScheduleGeneratorService) persist(ctx context.Context, groups []models.Group, obligations []Obligation, placements []Placement, clearing bool) (deleted int, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if clearing {
		subjectsByGroup := make(map[string][]string, len(groups))
		for _, obligation := range obligations {
			subjectsByGroup[obligation.Group.ID] = append(subjectsByGroup[obligation.Group.ID], obligation.Subject.ID)
		}
		for _, group := range groups {
			var removed int
			_, removed, err = clearGroupSchedule(ctx, s.schedules, tx, group.ID, subjectsByGroup[group.ID])
			if err != nil {
				return 0, err
			}
			deleted += removed
		}
	}

	for _, placement := range placements {
		key := models.SubjectScheduleKey{
			SubjectID:  placement.Subject.ID,
			DayID:      placement.Day.ID,
			TimeSlotID: placement.TimeSlot.ID,
			WeekParity: placement.WeekParity,
		}
		var scheduleID string
		scheduleID, _, err = s.schedules.GetOrCreate(ctx, tx, key)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subject schedule")
		}
		if err = s.schedules.AttachGroups(ctx, tx, scheduleID, []string{placement.Group.ID}); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach group")
		}
		if len(placement.Subject.TeacherIDs) > 0 {
			if err = s.schedules.AttachTeachers(ctx, tx, scheduleID, placement.Subject.TeacherIDs); err != nil {
				return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach teachers")
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generated schedule")
	}
	return deleted, nil
}

// clearGroupSchedule removes groupID from its assignments of subjectIDs and
// deletes assignments the group attended alone.
func clearGroupSchedule(ctx context.Context, store groupScheduleClearer, exec sqlx.ExtContext, groupID string, subjectIDs []string) (detached, deleted int, err error) {
	schedules, err := store.ListByGroupAndSubjects(ctx, exec, groupID, uniqueStrings(subjectIDs))
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group schedule")
	}
	for _, schedule := range schedules {
		if len(schedule.GroupIDs) <= 1 {
			if err := store.Delete(ctx, exec, schedule.ID); err != nil {
				return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject schedule")
			}
			deleted++
			continue
		}
		if err := store.DetachGroup(ctx, exec, schedule.ID, groupID); err != nil {
			return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach group")
		}
		detached++
	}
	return detached, deleted, nil
}

// Validate runs every conflict check for every assignment of the subjects
// reachable from the groups and reports all findings.
func (s *ScheduleGeneratorService) Validate(ctx context.Context, groupIDs []string) (*dto.ValidationResult, error) {
	subjectIDs, err := s.reachableSubjects(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	assignments, err := s.schedules.ListBySubjects(ctx, nil, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject schedules")
	}

	result := &dto.ValidationResult{Conflicts: []string{}}
	for _, assignment := range assignments {
		conflicts, err := s.conflicts.Collect(ctx, nil, assignment)
		if err != nil {
			return nil, err
		}
		for _, conflict := range conflicts {
			result.Conflicts = append(result.Conflicts, fmt.Sprintf("%s on %s, slot %d (%s): %s",
				assignment.SubjectTitle, assignment.DayTitle, assignment.TimeSlotNumber, assignment.WeekParity, conflict.Message()))
		}
	}
	if len(result.Conflicts) == 0 {
		result.IsValid = true
		result.Conflicts = []string{"Schedule is valid, no conflicts found"}
	}
	return result, nil
}

// Statistics counts subjects reachable from the groups and their assignments.
func (s *ScheduleGeneratorService) Statistics(ctx context.Context, groupIDs []string) (*dto.ScheduleStatistics, error) {
	groupIDs = uniqueStrings(groupIDs)
	if len(groupIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "groupIds is required")
	}
	groups, err := s.catalog.FindGroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	subjectIDs, err := s.reachableSubjects(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	counts, err := s.schedules.CountBySubjects(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subject schedules")
	}

	stats := &dto.ScheduleStatistics{TotalGroups: len(groups), TotalSubjects: len(subjectIDs)}
	for _, subjectID := range subjectIDs {
		count := counts[subjectID]
		stats.TotalScheduleSlots += count
		if count > 0 {
			stats.SubjectsWithSchedule++
		} else {
			stats.SubjectsWithoutSchedule++
		}
	}
	if stats.TotalSubjects > 0 {
		stats.AverageSlotsPerSubject = math.Round(float64(stats.TotalScheduleSlots)/float64(stats.TotalSubjects)*100) / 100
	}
	return stats, nil
}

// reachableSubjects unions curriculum subjects with subjects the groups
// already attend through assignments.
func (s *ScheduleGeneratorService) reachableSubjects(ctx context.Context, groupIDs []string) ([]string, error) {
	groupIDs = uniqueStrings(groupIDs)
	if len(groupIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "groupIds is required")
	}
	entries, err := s.catalog.ListCurriculum(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load curriculum")
	}
	scheduled, err := s.schedules.ListSubjectIDsByGroups(ctx, groupIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled subjects")
	}
	ids := make([]string, 0, len(entries)+len(scheduled))
	for _, entry := range entries {
		ids = append(ids, entry.SubjectID)
	}
	ids = append(ids, scheduled...)
	ids = uniqueStrings(ids)
	sort.Strings(ids)
	return ids, nil
}

func (s *ScheduleGeneratorService) invalidateTimetables(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, timetableCachePattern); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

func countUsableSlots(slots []models.TimeSlot, window *TimeWindow) int {
	count := 0
	for _, slot := range slots {
		if window.Contains(slot) {
			count++
		}
	}
	return count
}

func groupIDs(groups []models.Group) []string {
	ids := make([]string, len(groups))
	for i, group := range groups {
		ids[i] = group.ID
	}
	return ids
}

func groupTitles(groups []models.Group) string {
	titles := make([]string, len(groups))
	for i, group := range groups {
		titles[i] = group.Title
	}
	return strings.Join(titles, ", ")
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
