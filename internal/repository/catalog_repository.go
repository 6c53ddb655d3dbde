package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

// CatalogRepository reads the reference data a generation run works from.
// Catalog rows are maintained elsewhere; nothing here writes.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListDays returns every day ordered by sequence.
func (r *CatalogRepository) ListDays(ctx context.Context) ([]models.Day, error) {
	const query = `SELECT id, title, sequence FROM days ORDER BY sequence ASC`
	var days []models.Day
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// ListTimeSlots returns every time slot ordered by number.
func (r *CatalogRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, number, start_time, end_time FROM time_slots ORDER BY number ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// FindGroupsByIDs returns the active groups among ids ordered by title.
func (r *CatalogRepository) FindGroupsByIDs(ctx context.Context, ids []string) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, title, is_active FROM study_groups WHERE id = ANY($1) AND is_active = TRUE ORDER BY title ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find groups: %w", err)
	}
	return groups, nil
}

const subjectSelect = `
SELECT s.id, s.title, s.subject_type_id, COALESCE(st.title, '') AS subject_type,
       s.room_id, r.number AS room_number,
       ARRAY(SELECT stt.teacher_id FROM subject_teachers stt WHERE stt.subject_id = s.id ORDER BY stt.teacher_id) AS teacher_ids,
       ARRAY(SELECT u.full_name FROM subject_teachers stt JOIN users u ON u.id = stt.teacher_id WHERE stt.subject_id = s.id ORDER BY stt.teacher_id) AS teacher_names
FROM subjects s
LEFT JOIN subject_types st ON st.id = s.subject_type_id
LEFT JOIN rooms r ON r.id = s.room_id`

// FindSubjectsByIDs returns subjects with their room and assigned teachers.
func (r *CatalogRepository) FindSubjectsByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := subjectSelect + ` WHERE s.id = ANY($1) ORDER BY s.title ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	return subjects, nil
}

// ListCurriculum returns the subject links of the given groups.
func (r *CatalogRepository) ListCurriculum(ctx context.Context, groupIDs []string) ([]models.CurriculumEntry, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT group_id, subject_id FROM subject_groups WHERE group_id = ANY($1) ORDER BY group_id ASC, subject_id ASC`
	var entries []models.CurriculumEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(groupIDs)); err != nil {
		return nil, fmt.Errorf("list curriculum: %w", err)
	}
	return entries, nil
}
