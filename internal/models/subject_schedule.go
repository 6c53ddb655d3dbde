package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// SubjectSchedule places a subject at a day, time slot and week parity for a
// set of groups taught by a set of teachers.
type SubjectSchedule struct {
	ID             string         `db:"id" json:"id"`
	SubjectID      string         `db:"subject_id" json:"subject_id"`
	DayID          string         `db:"day_id" json:"day_id"`
	TimeSlotID     string         `db:"time_slot_id" json:"time_slot_id"`
	WeekParity     WeekParity     `db:"week_parity" json:"week_parity"`
	SubjectTitle   string         `db:"subject_title" json:"subject_title"`
	RoomID         *string        `db:"room_id" json:"room_id,omitempty"`
	RoomNumber     *string        `db:"room_number" json:"room_number,omitempty"`
	DayTitle       string         `db:"day_title" json:"day_title"`
	DaySequence    int            `db:"day_sequence" json:"day_sequence"`
	TimeSlotNumber int            `db:"time_slot_number" json:"time_slot_number"`
	GroupIDs       pq.StringArray `db:"group_ids" json:"group_ids"`
	GroupTitles    pq.StringArray `db:"group_titles" json:"group_titles"`
	TeacherIDs     pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	TeacherNames   pq.StringArray `db:"teacher_names" json:"teacher_names"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasGroup reports whether groupID attends the assignment.
func (s SubjectSchedule) HasGroup(groupID string) bool {
	return containsString(s.GroupIDs, groupID)
}

// HasTeacher reports whether teacherID teaches the assignment.
func (s SubjectSchedule) HasTeacher(teacherID string) bool {
	return containsString(s.TeacherIDs, teacherID)
}

// GroupTitle resolves a group id to its title, falling back to the id.
func (s SubjectSchedule) GroupTitle(groupID string) string {
	return lookupAligned(s.GroupIDs, s.GroupTitles, groupID)
}

// TeacherName resolves a teacher id to its name, falling back to the id.
func (s SubjectSchedule) TeacherName(teacherID string) string {
	return lookupAligned(s.TeacherIDs, s.TeacherNames, teacherID)
}

// SubjectScheduleKey identifies the row reused by the bulk writer.
type SubjectScheduleKey struct {
	SubjectID  string
	DayID      string
	TimeSlotID string
	WeekParity WeekParity
}

// ConflictDimension names the exclusive resource two assignments collide on.
type ConflictDimension string

const (
	ConflictGroup   ConflictDimension = "GROUP"
	ConflictRoom    ConflictDimension = "ROOM"
	ConflictTeacher ConflictDimension = "TEACHER"
)

// ScheduleConflict describes an existing assignment that collides with another.
type ScheduleConflict struct {
	ScheduleID     string            `json:"schedule_id"`
	SubjectID      string            `json:"subject_id"`
	SubjectTitle   string            `json:"subject_title"`
	DayTitle       string            `json:"day_title"`
	TimeSlotNumber int               `json:"time_slot_number"`
	WeekParity     WeekParity        `json:"week_parity"`
	Dimension      ConflictDimension `json:"dimension"`
	ResourceID     string            `json:"resource_id"`
	ResourceName   string            `json:"resource_name"`
}

// Message renders the conflict for operators.
func (c ScheduleConflict) Message() string {
	switch c.Dimension {
	case ConflictGroup:
		return fmt.Sprintf("group %s already attends %s on %s, slot %d (%s)",
			c.ResourceName, c.SubjectTitle, c.DayTitle, c.TimeSlotNumber, c.WeekParity.Label())
	case ConflictRoom:
		return fmt.Sprintf("room %s is already taken by %s on %s, slot %d (%s)",
			c.ResourceName, c.SubjectTitle, c.DayTitle, c.TimeSlotNumber, c.WeekParity.Label())
	case ConflictTeacher:
		return fmt.Sprintf("teacher %s already teaches %s on %s, slot %d (%s)",
			c.ResourceName, c.SubjectTitle, c.DayTitle, c.TimeSlotNumber, c.WeekParity.Label())
	default:
		return fmt.Sprintf("conflict with %s on %s, slot %d", c.SubjectTitle, c.DayTitle, c.TimeSlotNumber)
	}
}

// ScheduleConflictError is returned when an assignment collides with an existing one.
type ScheduleConflictError struct {
	Type     ConflictDimension  `json:"type"`
	Message  string             `json:"message"`
	Conflict ScheduleConflict   `json:"conflict"`
	Errors   []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// TimetableRow is one flattened assignment as rendered by timetables and exports.
type TimetableRow struct {
	ScheduleID     string         `db:"id" json:"schedule_id"`
	Day            string         `db:"day_title" json:"day"`
	DaySequence    int            `db:"day_sequence" json:"-"`
	TimeSlotNumber int            `db:"time_slot_number" json:"time_slot_number"`
	StartTime      time.Time      `db:"start_time" json:"-"`
	EndTime        time.Time      `db:"end_time" json:"-"`
	TimeSlot       string         `db:"-" json:"time_slot"`
	Subject        string         `db:"subject_title" json:"subject"`
	SubjectType    string         `db:"subject_type" json:"subject_type"`
	Room           *string        `db:"room_number" json:"room,omitempty"`
	Teachers       pq.StringArray `db:"teacher_names" json:"teachers"`
	Groups         pq.StringArray `db:"group_titles" json:"groups"`
	WeekParity     WeekParity     `db:"week_parity" json:"week_parity"`
}

// TimetableOwner names whose timetable is requested.
type TimetableOwner string

const (
	TimetableForGroup   TimetableOwner = "group"
	TimetableForTeacher TimetableOwner = "teacher"
	TimetableForRoom    TimetableOwner = "room"
)

// Valid reports whether the owner kind is supported.
func (o TimetableOwner) Valid() bool {
	switch o {
	case TimetableForGroup, TimetableForTeacher, TimetableForRoom:
		return true
	default:
		return false
	}
}

func formatSlotLabel(number int, start, end time.Time) string {
	return fmt.Sprintf("%d (%s-%s)", number, start.Format("15:04"), end.Format("15:04"))
}

// SlotLabel renders the row's time slot.
func (r TimetableRow) SlotLabel() string {
	return formatSlotLabel(r.TimeSlotNumber, r.StartTime, r.EndTime)
}

// RoomLabel renders the room or a dash when the subject has none.
func (r TimetableRow) RoomLabel() string {
	if r.Room == nil || *r.Room == "" {
		return "-"
	}
	return *r.Room
}

// TeachersLabel joins the teacher names for tabular output.
func (r TimetableRow) TeachersLabel() string {
	return strings.Join(r.Teachers, ", ")
}

// GroupsLabel joins the group titles for tabular output.
func (r TimetableRow) GroupsLabel() string {
	return strings.Join(r.Groups, ", ")
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func lookupAligned(ids, names []string, id string) string {
	for i, candidate := range ids {
		if candidate == id {
			if i < len(names) && names[i] != "" {
				return names[i]
			}
			break
		}
	}
	return id
}
