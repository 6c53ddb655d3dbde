package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// SubjectScheduleRepository persists assignments together with their group
// and teacher memberships.
type SubjectScheduleRepository struct {
	db *sqlx.DB
}

// NewSubjectScheduleRepository constructs the repository.
func NewSubjectScheduleRepository(db *sqlx.DB) *SubjectScheduleRepository {
	return &SubjectScheduleRepository{db: db}
}

func (r *SubjectScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const subjectScheduleSelect = `
SELECT ss.id, ss.subject_id, ss.day_id, ss.time_slot_id, ss.week_parity, ss.created_at, ss.updated_at,
       s.title AS subject_title, s.room_id, r.number AS room_number,
       d.title AS day_title, d.sequence AS day_sequence, ts.number AS time_slot_number,
       ARRAY(SELECT sg.group_id FROM subject_schedule_groups sg WHERE sg.subject_schedule_id = ss.id ORDER BY sg.group_id) AS group_ids,
       ARRAY(SELECT g.title FROM subject_schedule_groups sg JOIN study_groups g ON g.id = sg.group_id WHERE sg.subject_schedule_id = ss.id ORDER BY sg.group_id) AS group_titles,
       ARRAY(SELECT st.teacher_id FROM subject_schedule_teachers st WHERE st.subject_schedule_id = ss.id ORDER BY st.teacher_id) AS teacher_ids,
       ARRAY(SELECT u.full_name FROM subject_schedule_teachers st JOIN users u ON u.id = st.teacher_id WHERE st.subject_schedule_id = ss.id ORDER BY st.teacher_id) AS teacher_names
FROM subject_schedules ss
JOIN subjects s ON s.id = ss.subject_id
LEFT JOIN rooms r ON r.id = s.room_id
JOIN days d ON d.id = ss.day_id
JOIN time_slots ts ON ts.id = ss.time_slot_id`

const subjectScheduleOrder = ` ORDER BY d.sequence ASC, ts.number ASC, s.title ASC`

// FindByID returns a hydrated assignment or sql.ErrNoRows.
func (r *SubjectScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SubjectSchedule, error) {
	query := subjectScheduleSelect + ` WHERE ss.id = $1`
	var schedule models.SubjectSchedule
	if err := sqlx.GetContext(ctx, r.exec(exec), &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListOverlapping returns assignments at the same day and slot whose parity is
// one of parities, leaving out excludeID.
func (r *SubjectScheduleRepository) ListOverlapping(ctx context.Context, exec sqlx.ExtContext, dayID, timeSlotID string, parities []models.WeekParity, excludeID string) ([]models.SubjectSchedule, error) {
	values := make([]string, len(parities))
	for i, p := range parities {
		values[i] = string(p)
	}
	query := subjectScheduleSelect + ` WHERE ss.day_id = $1 AND ss.time_slot_id = $2 AND ss.week_parity = ANY($3) AND ss.id::text <> $4` + subjectScheduleOrder
	var schedules []models.SubjectSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, dayID, timeSlotID, pq.Array(values), excludeID); err != nil {
		return nil, fmt.Errorf("list overlapping subject schedules: %w", err)
	}
	return schedules, nil
}

// ListBySubjects returns every assignment of the given subjects.
func (r *SubjectScheduleRepository) ListBySubjects(ctx context.Context, exec sqlx.ExtContext, subjectIDs []string) ([]models.SubjectSchedule, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := subjectScheduleSelect + ` WHERE ss.subject_id = ANY($1)` + subjectScheduleOrder
	var schedules []models.SubjectSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list subject schedules by subject: %w", err)
	}
	return schedules, nil
}

// ListBySlots returns assignments placed on any of the days and slots.
func (r *SubjectScheduleRepository) ListBySlots(ctx context.Context, exec sqlx.ExtContext, dayIDs, timeSlotIDs []string) ([]models.SubjectSchedule, error) {
	if len(dayIDs) == 0 || len(timeSlotIDs) == 0 {
		return nil, nil
	}
	query := subjectScheduleSelect + ` WHERE ss.day_id = ANY($1) AND ss.time_slot_id = ANY($2)` + subjectScheduleOrder
	var schedules []models.SubjectSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, pq.Array(dayIDs), pq.Array(timeSlotIDs)); err != nil {
		return nil, fmt.Errorf("list subject schedules by slot: %w", err)
	}
	return schedules, nil
}

// ListByGroupAndSubjects returns the group's assignments for the subjects.
func (r *SubjectScheduleRepository) ListByGroupAndSubjects(ctx context.Context, exec sqlx.ExtContext, groupID string, subjectIDs []string) ([]models.SubjectSchedule, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	query := subjectScheduleSelect + ` WHERE ss.subject_id = ANY($1) AND EXISTS (
    SELECT 1 FROM subject_schedule_groups sg WHERE sg.subject_schedule_id = ss.id AND sg.group_id = $2)` + subjectScheduleOrder
	var schedules []models.SubjectSchedule
	if err := sqlx.SelectContext(ctx, r.exec(exec), &schedules, query, pq.Array(subjectIDs), groupID); err != nil {
		return nil, fmt.Errorf("list group subject schedules: %w", err)
	}
	return schedules, nil
}

// ListSubjectIDsByGroups returns the subjects any of the groups is scheduled for.
func (r *SubjectScheduleRepository) ListSubjectIDsByGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT ss.subject_id FROM subject_schedules ss
JOIN subject_schedule_groups sg ON sg.subject_schedule_id = ss.id
WHERE sg.group_id = ANY($1) ORDER BY ss.subject_id ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(groupIDs)); err != nil {
		return nil, fmt.Errorf("list scheduled subjects: %w", err)
	}
	return ids, nil
}

// CountBySubjects returns the number of assignments per subject. Subjects
// without assignments are absent from the map.
func (r *SubjectScheduleRepository) CountBySubjects(ctx context.Context, subjectIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return counts, nil
	}
	const query = `SELECT subject_id, COUNT(*) AS total FROM subject_schedules WHERE subject_id = ANY($1) GROUP BY subject_id`
	var rows []struct {
		SubjectID string `db:"subject_id"`
		Total     int    `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("count subject schedules: %w", err)
	}
	for _, row := range rows {
		counts[row.SubjectID] = row.Total
	}
	return counts, nil
}

// GetOrCreate returns the id of the assignment for key, inserting it when
// missing. created reports whether a new row was written.
func (r *SubjectScheduleRepository) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, key models.SubjectScheduleKey) (string, bool, error) {
	now := time.Now().UTC()
	const query = `
INSERT INTO subject_schedules (id, subject_id, day_id, time_slot_id, week_parity, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (subject_id, day_id, time_slot_id, week_parity) DO UPDATE SET updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS created`
	var row struct {
		ID      string `db:"id"`
		Created bool   `db:"created"`
	}
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, uuid.NewString(), key.SubjectID, key.DayID, key.TimeSlotID, key.WeekParity, now); err != nil {
		return "", false, fmt.Errorf("get or create subject schedule: %w", err)
	}
	return row.ID, row.Created, nil
}

// Create inserts the assignment row. Memberships are written separately.
func (r *SubjectScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.SubjectSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO subject_schedules (id, subject_id, day_id, time_slot_id, week_parity, created_at, updated_at)
VALUES (:id, :subject_id, :day_id, :time_slot_id, :week_parity, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("create subject schedule: %w", err)
	}
	return nil
}

// Update rewrites the placement columns of an assignment.
func (r *SubjectScheduleRepository) Update(ctx context.Context, exec sqlx.ExtContext, schedule *models.SubjectSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subject_schedules SET subject_id = :subject_id, day_id = :day_id, time_slot_id = :time_slot_id,
week_parity = :week_parity, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, schedule); err != nil {
		return fmt.Errorf("update subject schedule: %w", err)
	}
	return nil
}

// Delete removes an assignment; memberships cascade.
func (r *SubjectScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM subject_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete subject schedule: %w", err)
	}
	return nil
}

// AttachGroups adds group memberships, ignoring ones already present.
func (r *SubjectScheduleRepository) AttachGroups(ctx context.Context, exec sqlx.ExtContext, scheduleID string, groupIDs []string) error {
	const query = `INSERT INTO subject_schedule_groups (subject_schedule_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, groupID := range groupIDs {
		if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID, groupID); err != nil {
			return fmt.Errorf("attach group to subject schedule: %w", err)
		}
	}
	return nil
}

// AttachTeachers adds teacher memberships, ignoring ones already present.
func (r *SubjectScheduleRepository) AttachTeachers(ctx context.Context, exec sqlx.ExtContext, scheduleID string, teacherIDs []string) error {
	const query = `INSERT INTO subject_schedule_teachers (subject_schedule_id, teacher_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, teacherID := range teacherIDs {
		if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID, teacherID); err != nil {
			return fmt.Errorf("attach teacher to subject schedule: %w", err)
		}
	}
	return nil
}

// ReplaceMembers swaps the group and teacher sets of an assignment.
func (r *SubjectScheduleRepository) ReplaceMembers(ctx context.Context, exec sqlx.ExtContext, scheduleID string, groupIDs, teacherIDs []string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM subject_schedule_groups WHERE subject_schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("reset subject schedule groups: %w", err)
	}
	if _, err := target.ExecContext(ctx, `DELETE FROM subject_schedule_teachers WHERE subject_schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("reset subject schedule teachers: %w", err)
	}
	if err := r.AttachGroups(ctx, target, scheduleID, groupIDs); err != nil {
		return err
	}
	return r.AttachTeachers(ctx, target, scheduleID, teacherIDs)
}

// DetachGroup removes one group membership.
func (r *SubjectScheduleRepository) DetachGroup(ctx context.Context, exec sqlx.ExtContext, scheduleID, groupID string) error {
	const query = `DELETE FROM subject_schedule_groups WHERE subject_schedule_id = $1 AND group_id = $2`
	if _, err := r.exec(exec).ExecContext(ctx, query, scheduleID, groupID); err != nil {
		return fmt.Errorf("detach group from subject schedule: %w", err)
	}
	return nil
}

const timetableSelect = `
SELECT ss.id, ss.week_parity, d.title AS day_title, d.sequence AS day_sequence,
       ts.number AS time_slot_number, ts.start_time, ts.end_time,
       s.title AS subject_title, COALESCE(st.title, '') AS subject_type, r.number AS room_number,
       ARRAY(SELECT u.full_name FROM subject_schedule_teachers sst JOIN users u ON u.id = sst.teacher_id WHERE sst.subject_schedule_id = ss.id ORDER BY u.full_name) AS teacher_names,
       ARRAY(SELECT g.title FROM subject_schedule_groups sg JOIN study_groups g ON g.id = sg.group_id WHERE sg.subject_schedule_id = ss.id ORDER BY g.title) AS group_titles
FROM subject_schedules ss
JOIN subjects s ON s.id = ss.subject_id
LEFT JOIN subject_types st ON st.id = s.subject_type_id
LEFT JOIN rooms r ON r.id = s.room_id
JOIN days d ON d.id = ss.day_id
JOIN time_slots ts ON ts.id = ss.time_slot_id`

// ListTimetable returns the flattened rows for a group, teacher or room.
func (r *SubjectScheduleRepository) ListTimetable(ctx context.Context, owner models.TimetableOwner, ownerID string) ([]models.TimetableRow, error) {
	var where string
	switch owner {
	case models.TimetableForGroup:
		where = ` WHERE EXISTS (SELECT 1 FROM subject_schedule_groups sg WHERE sg.subject_schedule_id = ss.id AND sg.group_id = $1)`
	case models.TimetableForTeacher:
		where = ` WHERE EXISTS (SELECT 1 FROM subject_schedule_teachers sst WHERE sst.subject_schedule_id = ss.id AND sst.teacher_id = $1)`
	case models.TimetableForRoom:
		where = ` WHERE s.room_id = $1`
	default:
		return nil, fmt.Errorf("list timetable: unsupported owner %q", owner)
	}
	query := timetableSelect + where + subjectScheduleOrder
	var rows []models.TimetableRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return rows, nil
}
