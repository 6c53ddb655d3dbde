package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

type overlappingScheduleReader interface {
	ListOverlapping(ctx context.Context, exec sqlx.ExtContext, dayID, timeSlotID string, parities []models.WeekParity, excludeID string) ([]models.SubjectSchedule, error)
}

// ScheduleConflictValidator re-checks persisted assignments for double
// bookings of groups, rooms and teachers. It only reads.
type ScheduleConflictValidator struct {
	repo   overlappingScheduleReader
	logger *zap.Logger
}

// NewScheduleConflictValidator constructs the validator.
func NewScheduleConflictValidator(repo overlappingScheduleReader, logger *zap.Logger) *ScheduleConflictValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleConflictValidator{repo: repo, logger: logger}
}

func (v *ScheduleConflictValidator) neighbours(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.SubjectSchedule, error) {
	others, err := v.repo.ListOverlapping(ctx, exec, assignment.DayID, assignment.TimeSlotID, assignment.WeekParity.Overlapping(), assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overlapping schedules")
	}
	result := others[:0]
	for _, other := range others {
		if other.ID != assignment.ID && assignment.WeekParity.Overlaps(other.WeekParity) {
			result = append(result, other)
		}
	}
	return result, nil
}

// CheckGroups reports every other assignment that one of the assignment's
// groups also attends at an overlapping time.
func (v *ScheduleConflictValidator) CheckGroups(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.ScheduleConflict, error) {
	if assignment.ID == "" || len(assignment.GroupIDs) == 0 {
		return nil, nil
	}
	others, err := v.neighbours(ctx, exec, assignment)
	if err != nil {
		return nil, err
	}
	var conflicts []models.ScheduleConflict
	for _, groupID := range assignment.GroupIDs {
		for _, other := range others {
			if other.HasGroup(groupID) {
				conflicts = append(conflicts, conflictWith(other, models.ConflictGroup, groupID, assignment.GroupTitle(groupID)))
			}
		}
	}
	return conflicts, nil
}

// CheckRoom reports other subjects held in the same room at an overlapping
// time. Assignments of the same subject share the room legitimately.
func (v *ScheduleConflictValidator) CheckRoom(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.ScheduleConflict, error) {
	if assignment.ID == "" || assignment.RoomID == nil || *assignment.RoomID == "" {
		return nil, nil
	}
	others, err := v.neighbours(ctx, exec, assignment)
	if err != nil {
		return nil, err
	}
	roomName := *assignment.RoomID
	if assignment.RoomNumber != nil && *assignment.RoomNumber != "" {
		roomName = *assignment.RoomNumber
	}
	var conflicts []models.ScheduleConflict
	for _, other := range others {
		if other.RoomID == nil || *other.RoomID != *assignment.RoomID || other.SubjectID == assignment.SubjectID {
			continue
		}
		conflicts = append(conflicts, conflictWith(other, models.ConflictRoom, *assignment.RoomID, roomName))
	}
	return conflicts, nil
}

// CheckTeachers reports other subjects taught by one of the assignment's
// teachers at an overlapping time. Parallel rows of the same subject are a
// streamed lecture and do not conflict.
func (v *ScheduleConflictValidator) CheckTeachers(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.ScheduleConflict, error) {
	if assignment.ID == "" || len(assignment.TeacherIDs) == 0 {
		return nil, nil
	}
	others, err := v.neighbours(ctx, exec, assignment)
	if err != nil {
		return nil, err
	}
	var conflicts []models.ScheduleConflict
	for _, teacherID := range assignment.TeacherIDs {
		for _, other := range others {
			if other.SubjectID == assignment.SubjectID || !other.HasTeacher(teacherID) {
				continue
			}
			conflicts = append(conflicts, conflictWith(other, models.ConflictTeacher, teacherID, assignment.TeacherName(teacherID)))
		}
	}
	return conflicts, nil
}

// CheckAll runs the group, room and teacher checks in that order and returns
// a conflict error for the first category that fails.
func (v *ScheduleConflictValidator) CheckAll(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) error {
	checks := []func(context.Context, sqlx.ExtContext, models.SubjectSchedule) ([]models.ScheduleConflict, error){
		v.CheckGroups,
		v.CheckRoom,
		v.CheckTeachers,
	}
	for _, check := range checks {
		conflicts, err := check(ctx, exec, assignment)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			v.logger.Info("schedule conflict rejected",
				zap.String("schedule_id", assignment.ID),
				zap.String("dimension", string(conflicts[0].Dimension)),
				zap.Int("conflicts", len(conflicts)))
			return wrapScheduleConflict(conflicts)
		}
	}
	return nil
}

// Collect runs every check without short-circuiting.
func (v *ScheduleConflictValidator) Collect(ctx context.Context, exec sqlx.ExtContext, assignment models.SubjectSchedule) ([]models.ScheduleConflict, error) {
	var all []models.ScheduleConflict
	for _, check := range []func(context.Context, sqlx.ExtContext, models.SubjectSchedule) ([]models.ScheduleConflict, error){
		v.CheckGroups, v.CheckRoom, v.CheckTeachers,
	} {
		conflicts, err := check(ctx, exec, assignment)
		if err != nil {
			return nil, err
		}
		all = append(all, conflicts...)
	}
	return all, nil
}

func conflictWith(other models.SubjectSchedule, dimension models.ConflictDimension, resourceID, resourceName string) models.ScheduleConflict {
	return models.ScheduleConflict{
		ScheduleID:     other.ID,
		SubjectID:      other.SubjectID,
		SubjectTitle:   other.SubjectTitle,
		DayTitle:       other.DayTitle,
		TimeSlotNumber: other.TimeSlotNumber,
		WeekParity:     other.WeekParity,
		Dimension:      dimension,
		ResourceID:     resourceID,
		ResourceName:   resourceName,
	}
}

func wrapScheduleConflict(conflicts []models.ScheduleConflict) error {
	first := conflicts[0]
	domainErr := &models.ScheduleConflictError{
		Type:     first.Dimension,
		Message:  first.Message(),
		Conflict: first,
		Errors:   conflicts,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", first.Message()))
}
