package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func clock(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

func strPtr(v string) *string {
	return &v
}

var (
	monday    = models.Day{ID: "mon", Title: "Monday", Sequence: 1}
	tuesday   = models.Day{ID: "tue", Title: "Tuesday", Sequence: 2}
	wednesday = models.Day{ID: "wed", Title: "Wednesday", Sequence: 3}

	slotOne   = models.TimeSlot{ID: "slot-1", Number: 1, StartTime: clock(8, 0), EndTime: clock(9, 30)}
	slotTwo   = models.TimeSlot{ID: "slot-2", Number: 2, StartTime: clock(9, 40), EndTime: clock(11, 10)}
	slotThree = models.TimeSlot{ID: "slot-3", Number: 3, StartTime: clock(11, 20), EndTime: clock(12, 50)}
	slotLate  = models.TimeSlot{ID: "slot-7", Number: 7, StartTime: clock(18, 30), EndTime: clock(20, 0)}
)

func subjectFixture(id, roomID, teacherID string) models.Subject {
	subject := models.Subject{ID: id, Title: "Subject " + id, SubjectType: "Lecture"}
	if roomID != "" {
		subject.RoomID = strPtr(roomID)
		subject.RoomNumber = strPtr("R-" + roomID)
	}
	if teacherID != "" {
		subject.TeacherIDs = pq.StringArray{teacherID}
		subject.TeacherNames = pq.StringArray{"Teacher " + teacherID}
	}
	return subject
}

type fakeCatalog struct {
	days       []models.Day
	slots      []models.TimeSlot
	groups     []models.Group
	subjects   []models.Subject
	curriculum []models.CurriculumEntry
}

func (c *fakeCatalog) ListDays(context.Context) ([]models.Day, error) {
	return append([]models.Day(nil), c.days...), nil
}

func (c *fakeCatalog) ListTimeSlots(context.Context) ([]models.TimeSlot, error) {
	return append([]models.TimeSlot(nil), c.slots...), nil
}

func (c *fakeCatalog) FindGroupsByIDs(_ context.Context, ids []string) ([]models.Group, error) {
	var out []models.Group
	for _, group := range c.groups {
		for _, id := range ids {
			if group.ID == id && group.IsActive {
				out = append(out, group)
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) FindSubjectsByIDs(_ context.Context, ids []string) ([]models.Subject, error) {
	var out []models.Subject
	for _, subject := range c.subjects {
		for _, id := range ids {
			if subject.ID == id {
				out = append(out, subject)
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) ListCurriculum(_ context.Context, groupIDs []string) ([]models.CurriculumEntry, error) {
	var out []models.CurriculumEntry
	for _, entry := range c.curriculum {
		for _, id := range groupIDs {
			if entry.GroupID == id {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

// memoryScheduleStore keeps assignments in memory and ignores the executor.
type memoryScheduleStore struct {
	mu       sync.Mutex
	rows     map[string]models.SubjectSchedule
	seq      int
	titles   map[string]string
	rooms    map[string]models.Subject
	failWith error
}

func newMemoryScheduleStore(rows ...models.SubjectSchedule) *memoryScheduleStore {
	store := &memoryScheduleStore{rows: make(map[string]models.SubjectSchedule), titles: make(map[string]string), rooms: make(map[string]models.Subject)}
	for _, row := range rows {
		store.rows[row.ID] = cloneSchedule(row)
	}
	return store
}

func cloneSchedule(row models.SubjectSchedule) models.SubjectSchedule {
	row.GroupIDs = append(pq.StringArray(nil), row.GroupIDs...)
	row.GroupTitles = append(pq.StringArray(nil), row.GroupTitles...)
	row.TeacherIDs = append(pq.StringArray(nil), row.TeacherIDs...)
	row.TeacherNames = append(pq.StringArray(nil), row.TeacherNames...)
	return row
}

func (s *memoryScheduleStore) sorted(filter func(models.SubjectSchedule) bool) []models.SubjectSchedule {
	var out []models.SubjectSchedule
	for _, row := range s.rows {
		if filter(row) {
			out = append(out, cloneSchedule(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryScheduleStore) all() []models.SubjectSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted(func(models.SubjectSchedule) bool { return true })
}

func (s *memoryScheduleStore) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.SubjectSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	row = cloneSchedule(row)
	return &row, nil
}

func (s *memoryScheduleStore) ListBySubjects(_ context.Context, _ sqlx.ExtContext, subjectIDs []string) ([]models.SubjectSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := toSet(subjectIDs)
	return s.sorted(func(row models.SubjectSchedule) bool { return wanted[row.SubjectID] }), nil
}

func (s *memoryScheduleStore) ListBySlots(_ context.Context, _ sqlx.ExtContext, dayIDs, timeSlotIDs []string) ([]models.SubjectSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, slots := toSet(dayIDs), toSet(timeSlotIDs)
	return s.sorted(func(row models.SubjectSchedule) bool { return days[row.DayID] && slots[row.TimeSlotID] }), nil
}

func (s *memoryScheduleStore) ListOverlapping(_ context.Context, _ sqlx.ExtContext, dayID, timeSlotID string, parities []models.WeekParity, excludeID string) ([]models.SubjectSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.sorted(func(row models.SubjectSchedule) bool {
		if row.ID == excludeID || row.DayID != dayID || row.TimeSlotID != timeSlotID {
			return false
		}
		for _, p := range parities {
			if row.WeekParity == p {
				return true
			}
		}
		return false
	}), nil
}

func (s *memoryScheduleStore) ListByGroupAndSubjects(_ context.Context, _ sqlx.ExtContext, groupID string, subjectIDs []string) ([]models.SubjectSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := toSet(subjectIDs)
	return s.sorted(func(row models.SubjectSchedule) bool { return wanted[row.SubjectID] && row.HasGroup(groupID) }), nil
}

func (s *memoryScheduleStore) ListSubjectIDsByGroups(_ context.Context, groupIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, row := range s.rows {
		for _, groupID := range groupIDs {
			if row.HasGroup(groupID) {
				ids = append(ids, row.SubjectID)
			}
		}
	}
	return uniqueStrings(ids), nil
}

func (s *memoryScheduleStore) CountBySubjects(_ context.Context, subjectIDs []string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := toSet(subjectIDs)
	counts := make(map[string]int)
	for _, row := range s.rows {
		if wanted[row.SubjectID] {
			counts[row.SubjectID]++
		}
	}
	return counts, nil
}

func (s *memoryScheduleStore) GetOrCreate(_ context.Context, _ sqlx.ExtContext, key models.SubjectScheduleKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.SubjectID == key.SubjectID && row.DayID == key.DayID && row.TimeSlotID == key.TimeSlotID && row.WeekParity == key.WeekParity {
			return id, false, nil
		}
	}
	id := s.nextID()
	s.rows[id] = models.SubjectSchedule{
		ID:           id,
		SubjectID:    key.SubjectID,
		SubjectTitle: s.titles[key.SubjectID],
		DayID:        key.DayID,
		TimeSlotID:   key.TimeSlotID,
		WeekParity:   key.WeekParity,
		RoomID:       s.rooms[key.SubjectID].RoomID,
		RoomNumber:   s.rooms[key.SubjectID].RoomNumber,
	}
	return id, true, nil
}

func (s *memoryScheduleStore) AttachGroups(_ context.Context, _ sqlx.ExtContext, scheduleID string, groupIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	row.GroupIDs = pq.StringArray(uniqueStrings(append([]string(row.GroupIDs), groupIDs...)))
	s.rows[scheduleID] = row
	return nil
}

func (s *memoryScheduleStore) AttachTeachers(_ context.Context, _ sqlx.ExtContext, scheduleID string, teacherIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	row.TeacherIDs = pq.StringArray(uniqueStrings(append([]string(row.TeacherIDs), teacherIDs...)))
	s.rows[scheduleID] = row
	return nil
}

func (s *memoryScheduleStore) DetachGroup(_ context.Context, _ sqlx.ExtContext, scheduleID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	kept := pq.StringArray{}
	for _, id := range row.GroupIDs {
		if id != groupID {
			kept = append(kept, id)
		}
	}
	row.GroupIDs = kept
	s.rows[scheduleID] = row
	return nil
}

func (s *memoryScheduleStore) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

func (s *memoryScheduleStore) Create(_ context.Context, _ sqlx.ExtContext, schedule *models.SubjectSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule.ID = s.nextID()
	schedule.SubjectTitle = s.titles[schedule.SubjectID]
	s.rows[schedule.ID] = cloneSchedule(*schedule)
	return nil
}

func (s *memoryScheduleStore) Update(_ context.Context, _ sqlx.ExtContext, schedule *models.SubjectSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[schedule.ID]; !ok {
		return sql.ErrNoRows
	}
	s.rows[schedule.ID] = cloneSchedule(*schedule)
	return nil
}

func (s *memoryScheduleStore) ReplaceMembers(_ context.Context, _ sqlx.ExtContext, scheduleID string, groupIDs, teacherIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	row.GroupIDs = pq.StringArray(groupIDs)
	row.TeacherIDs = pq.StringArray(teacherIDs)
	s.rows[scheduleID] = row
	return nil
}

func (s *memoryScheduleStore) nextID() string {
	s.seq++
	return fmt.Sprintf("sched-%d", s.seq)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

type cacheInvalidatorStub struct {
	patterns []string
	err      error
}

func (c *cacheInvalidatorStub) Invalidate(_ context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return c.err
}
