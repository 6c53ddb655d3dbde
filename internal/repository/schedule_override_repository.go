package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// ScheduleOverrideRepository persists date-specific timetable exceptions.
type ScheduleOverrideRepository struct {
	db *sqlx.DB
}

// NewScheduleOverrideRepository constructs the repository.
func NewScheduleOverrideRepository(db *sqlx.DB) *ScheduleOverrideRepository {
	return &ScheduleOverrideRepository{db: db}
}

const scheduleOverrideSelect = `
SELECT o.id, o.subject_id, s.title AS subject_title, o.date, o.time_slot_id, ts.number AS time_slot_number,
       o.room_id, o.is_cancelled, o.notes, o.created_at, o.updated_at
FROM schedule_overrides o
JOIN subjects s ON s.id = o.subject_id
JOIN time_slots ts ON ts.id = o.time_slot_id`

// List returns overrides matching the filter ordered by date and slot number.
func (r *ScheduleOverrideRepository) List(ctx context.Context, filter models.ScheduleOverrideFilter) ([]models.ScheduleOverride, int, error) {
	var conditions []string
	var args []interface{}

	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("o.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("o.date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("o.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("o.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.IsCancelled != nil {
		conditions = append(conditions, fmt.Sprintf("o.is_cancelled = $%d", len(args)+1))
		args = append(args, *filter.IsCancelled)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY o.date ASC, ts.number ASC LIMIT %d OFFSET %d", scheduleOverrideSelect, where, pageSize, offset)
	var overrides []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule overrides: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM schedule_overrides o" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule overrides: %w", err)
	}
	return overrides, total, nil
}

// FindByID returns an override or sql.ErrNoRows.
func (r *ScheduleOverrideRepository) FindByID(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	var override models.ScheduleOverride
	if err := r.db.GetContext(ctx, &override, scheduleOverrideSelect+` WHERE o.id = $1`, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// ExistsFor reports whether another override already covers subject, date and slot.
func (r *ScheduleOverrideRepository) ExistsFor(ctx context.Context, subjectID string, date time.Time, timeSlotID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM schedule_overrides WHERE subject_id = $1 AND date = $2 AND time_slot_id = $3 AND id::text <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, subjectID, date, timeSlotID, excludeID); err != nil {
		return false, fmt.Errorf("check schedule override: %w", err)
	}
	return exists, nil
}

// Create inserts a new override.
func (r *ScheduleOverrideRepository) Create(ctx context.Context, override *models.ScheduleOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	override.CreatedAt = now
	override.UpdatedAt = now
	const query = `INSERT INTO schedule_overrides (id, subject_id, date, time_slot_id, room_id, is_cancelled, notes, created_at, updated_at)
VALUES (:id, :subject_id, :date, :time_slot_id, :room_id, :is_cancelled, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("create schedule override: %w", err)
	}
	return nil
}

// Update rewrites an override.
func (r *ScheduleOverrideRepository) Update(ctx context.Context, override *models.ScheduleOverride) error {
	override.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_overrides SET subject_id = :subject_id, date = :date, time_slot_id = :time_slot_id,
room_id = :room_id, is_cancelled = :is_cancelled, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("update schedule override: %w", err)
	}
	return nil
}

// Delete removes an override.
func (r *ScheduleOverrideRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_overrides WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule override: %w", err)
	}
	return nil
}
