package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

const overrideDateLayout = "2006-01-02"

type scheduleOverrideRepository interface {
	List(ctx context.Context, filter models.ScheduleOverrideFilter) ([]models.ScheduleOverride, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleOverride, error)
	ExistsFor(ctx context.Context, subjectID string, date time.Time, timeSlotID, excludeID string) (bool, error)
	Create(ctx context.Context, override *models.ScheduleOverride) error
	Update(ctx context.Context, override *models.ScheduleOverride) error
	Delete(ctx context.Context, id string) error
}

// ScheduleOverrideService manages cancellations and relocations of single
// lessons on concrete dates.
type ScheduleOverrideService struct {
	repo      scheduleOverrideRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleOverrideService constructs the service.
func NewScheduleOverrideService(repo scheduleOverrideRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ScheduleOverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleOverrideService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns overrides matching the query with pagination metadata.
func (s *ScheduleOverrideService) List(ctx context.Context, query dto.ScheduleOverrideQuery) ([]models.ScheduleOverride, *models.Pagination, error) {
	filter := models.ScheduleOverrideFilter{
		SubjectID: strings.TrimSpace(query.SubjectID),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	var err error
	if filter.Date, err = parseOptionalDate(query.Date, "date"); err != nil {
		return nil, nil, err
	}
	if filter.DateFrom, err = parseOptionalDate(query.DateFrom, "date_from"); err != nil {
		return nil, nil, err
	}
	if filter.DateTo, err = parseOptionalDate(query.DateTo, "date_to"); err != nil {
		return nil, nil, err
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	if raw := strings.TrimSpace(query.IsCancelled); raw != "" {
		cancelled, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "is_cancelled must be a boolean")
		}
		filter.IsCancelled = &cancelled
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	overrides, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule overrides")
	}
	pagination := &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	}
	if total > 0 {
		pagination.TotalPages = (total + filter.PageSize - 1) / filter.PageSize
	}
	return overrides, pagination, nil
}

// Get returns one override.
func (s *ScheduleOverrideService) Get(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	override, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule override not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule override")
	}
	return override, nil
}

// Create registers an override. One override per subject, date and slot.
func (s *ScheduleOverrideService) Create(ctx context.Context, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	override := &models.ScheduleOverride{}
	if err := s.apply(ctx, override, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, override); err != nil {
		return nil, mapWriteError(err, "failed to create schedule override")
	}
	s.afterWrite(ctx, "created", override)
	return s.Get(ctx, override.ID)
}

// Update replaces an override.
func (s *ScheduleOverrideService) Update(ctx context.Context, id string, req dto.ScheduleOverrideRequest) (*models.ScheduleOverride, error) {
	override, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, override, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, override); err != nil {
		return nil, mapWriteError(err, "failed to update schedule override")
	}
	s.afterWrite(ctx, "updated", override)
	return s.Get(ctx, id)
}

// Delete removes an override.
func (s *ScheduleOverrideService) Delete(ctx context.Context, id string) error {
	override, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule override")
	}
	s.afterWrite(ctx, "deleted", override)
	return nil
}

func (s *ScheduleOverrideService) apply(ctx context.Context, override *models.ScheduleOverride, req dto.ScheduleOverrideRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule override payload")
	}
	date, err := time.Parse(overrideDateLayout, req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}

	exists, err := s.repo.ExistsFor(ctx, req.SubjectID, date, req.TimeSlotID, override.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule override")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "an override for this subject, date and time slot already exists")
	}

	override.SubjectID = req.SubjectID
	override.Date = date
	override.TimeSlotID = req.TimeSlotID
	override.RoomID = nil
	if req.RoomID != nil && strings.TrimSpace(*req.RoomID) != "" {
		roomID := strings.TrimSpace(*req.RoomID)
		override.RoomID = &roomID
	}
	override.IsCancelled = req.IsCancelled
	override.Notes = strings.TrimSpace(req.Notes)
	// A cancelled lesson has no room; an empty room keeps the regular one.
	if override.IsCancelled {
		override.RoomID = nil
	}
	return nil
}

func (s *ScheduleOverrideService) afterWrite(ctx context.Context, action string, override *models.ScheduleOverride) {
	s.logger.Info("schedule override "+action,
		zap.String("override_id", override.ID),
		zap.String("subject_id", override.SubjectID),
		zap.String("date", override.Date.Format(overrideDateLayout)))
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, timetableCachePattern); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.Error(err))
	}
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(overrideDateLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, field+" must use YYYY-MM-DD")
	}
	return &parsed, nil
}
