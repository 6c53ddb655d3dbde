package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type subjectScheduleStore interface {
	groupScheduleClearer
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubjectSchedule, error)
	ListBySubjects(ctx context.Context, exec sqlx.ExtContext, subjectIDs []string) ([]models.SubjectSchedule, error)
	ListBySlots(ctx context.Context, exec sqlx.ExtContext, dayIDs, timeSlotIDs []string) ([]models.SubjectSchedule, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.SubjectSchedule) error
	Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.SubjectSchedule) error
	ReplaceMembers(ctx context.Context, exec sqlx.ExtContext, scheduleID string, groupIDs, teacherIDs []string) error
}

type timeSlotLister interface {
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
}

type scheduleConflictChecker interface {
	CheckAll(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) error
}

// SubjectScheduleService handles direct administrative edits of assignments.
// Every write is checked for conflicts inside its transaction and rolled back
// when one is found.
type SubjectScheduleService struct {
	repo      subjectScheduleStore
	slots     timeSlotLister
	conflicts scheduleConflictChecker
	tx        txProvider
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectScheduleService instantiates SubjectScheduleService.
func NewSubjectScheduleService(
	repo subjectScheduleStore,
	slots timeSlotLister,
	conflicts scheduleConflictChecker,
	tx txProvider,
	cache cacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *SubjectScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectScheduleService{
		repo:      repo,
		slots:     slots,
		conflicts: conflicts,
		tx:        tx,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Get returns one assignment.
func (s *SubjectScheduleService) Get(ctx context.Context, id string) (*models.SubjectSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject schedule")
	}
	return schedule, nil
}

// ListBySubject returns the assignments of a subject.
func (s *SubjectScheduleService) ListBySubject(ctx context.Context, subjectID string) ([]models.SubjectSchedule, error) {
	schedules, err := s.repo.ListBySubjects(ctx, nil, []string{subjectID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject schedules")
	}
	return schedules, nil
}

// Create writes a new assignment if it collides with nothing.
func (s *SubjectScheduleService) Create(ctx context.Context, req dto.SubjectScheduleRequest) (*models.SubjectSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject schedule payload")
	}
	schedule := &models.SubjectSchedule{
		SubjectID:  req.SubjectID,
		DayID:      req.DayID,
		TimeSlotID: req.TimeSlotID,
		WeekParity: models.WeekParity(req.WeekParity),
	}
	saved, err := s.write(ctx, schedule, req, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subject schedule created", zap.String("schedule_id", saved.ID), zap.String("subject_id", saved.SubjectID))
	return saved, nil
}

// Update replaces the placement and members of an assignment.
func (s *SubjectScheduleService) Update(ctx context.Context, id string, req dto.SubjectScheduleRequest) (*models.SubjectSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject schedule payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.SubjectID = req.SubjectID
	existing.DayID = req.DayID
	existing.TimeSlotID = req.TimeSlotID
	existing.WeekParity = models.WeekParity(req.WeekParity)
	return s.write(ctx, existing, req, false)
}

func (s *SubjectScheduleService) write(ctx context.Context, schedule *models.SubjectSchedule, req dto.SubjectScheduleRequest, create bool) (saved *models.SubjectSchedule, err error) {
	if !schedule.WeekParity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown week parity")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if create {
		err = s.repo.Create(ctx, tx, schedule)
	} else {
		err = s.repo.Update(ctx, tx, schedule)
	}
	if err != nil {
		return nil, mapWriteError(err, "failed to store subject schedule")
	}
	if err = s.repo.ReplaceMembers(ctx, tx, schedule.ID, uniqueStrings(req.GroupIDs), uniqueStrings(req.TeacherIDs)); err != nil {
		return nil, mapWriteError(err, "failed to store subject schedule members")
	}

	saved, err = s.repo.FindByID(ctx, tx, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload subject schedule")
	}
	if err = s.conflicts.CheckAll(ctx, tx, *saved); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit subject schedule")
	}
	s.invalidate(ctx)
	return saved, nil
}

// Delete removes an assignment.
func (s *SubjectScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, nil, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject schedule")
	}
	s.invalidate(ctx)
	return nil
}

// ClearGroup detaches the group from its assignments of the subjects,
// deleting the ones it attended alone.
func (s *SubjectScheduleService) ClearGroup(ctx context.Context, req dto.ClearGroupScheduleRequest) (result *dto.ClearGroupScheduleResult, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clear schedule payload")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	detached, deleted, err := clearGroupSchedule(ctx, s.repo, tx, req.GroupID, req.SubjectIDs)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule clearing")
	}
	s.invalidate(ctx)
	s.logger.Info("group schedule cleared",
		zap.String("group_id", req.GroupID),
		zap.Int("detached", detached),
		zap.Int("deleted", deleted))
	return &dto.ClearGroupScheduleResult{Detached: detached, Deleted: deleted}, nil
}

// FreeTimeSlots returns the slots of a day where none of the given group,
// teacher or room is busy in an overlapping week.
func (s *SubjectScheduleService) FreeTimeSlots(ctx context.Context, query dto.FreeTimeSlotsQuery) ([]models.TimeSlot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid free slot query")
	}
	parity := models.WeekParityBoth
	if query.WeekParity != "" {
		parity = models.WeekParity(query.WeekParity)
	}

	slots, err := s.slots.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	slotIDs := make([]string, len(slots))
	for i, slot := range slots {
		slotIDs[i] = slot.ID
	}
	busy, err := s.repo.ListBySlots(ctx, nil, []string{query.DayID}, slotIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}

	occupied := make(map[string]bool)
	for _, assignment := range busy {
		if !parity.Overlaps(assignment.WeekParity) {
			continue
		}
		switch {
		case query.GroupID != "" && assignment.HasGroup(query.GroupID),
			query.TeacherID != "" && assignment.HasTeacher(query.TeacherID),
			query.RoomID != "" && assignment.RoomID != nil && *assignment.RoomID == query.RoomID:
			occupied[assignment.TimeSlotID] = true
		}
	}

	free := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if !occupied[slot.ID] {
			free = append(free, slot)
		}
	}
	return free, nil
}

func (s *SubjectScheduleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, timetableCachePattern); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

// mapWriteError turns constraint violations into client errors.
func mapWriteError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "an identical assignment already exists")
		case pgForeignKeyViolation:
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced subject, day, time slot, group or teacher does not exist")
		}
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
