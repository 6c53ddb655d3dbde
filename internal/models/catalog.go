package models

import (
	"time"

	"github.com/lib/pq"
)

// Day is a weekday of the recurring timetable. Sequence orders days.
type Day struct {
	ID       string `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	Sequence int    `db:"sequence" json:"sequence"`
}

// TimeSlot is a numbered teaching period. Only the clock part of the start
// and end values is meaningful.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	Number    int       `db:"number" json:"number"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
}

// StartMinutes returns the slot start as minutes after midnight.
func (t TimeSlot) StartMinutes() int {
	return ClockMinutes(t.StartTime)
}

// EndMinutes returns the slot end as minutes after midnight.
func (t TimeSlot) EndMinutes() int {
	return ClockMinutes(t.EndTime)
}

// Label renders the slot as "2 (09:40-11:10)".
func (t TimeSlot) Label() string {
	return formatSlotLabel(t.Number, t.StartTime, t.EndTime)
}

// ClockMinutes drops the date part of a TIME value.
func ClockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Room is a lecture hall or lab ("audience").
type Room struct {
	ID         string `db:"id" json:"id"`
	Number     string `db:"number" json:"number"`
	Floor      int    `db:"floor" json:"floor"`
	BuildingID string `db:"building_id" json:"building_id"`
	RoomType   string `db:"room_type" json:"room_type"`
}

// Group is a study group receiving teaching obligations.
type Group struct {
	ID       string `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// Teacher is a user carrying the TEACHER role.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// Subject is a course taught in a fixed room by its assigned teachers.
type Subject struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	SubjectTypeID string         `db:"subject_type_id" json:"subject_type_id"`
	SubjectType   string         `db:"subject_type" json:"subject_type"`
	RoomID        *string        `db:"room_id" json:"room_id,omitempty"`
	RoomNumber    *string        `db:"room_number" json:"room_number,omitempty"`
	TeacherIDs    pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	TeacherNames  pq.StringArray `db:"teacher_names" json:"teacher_names"`
}

// HasRoom reports whether the subject is bound to a room.
func (s Subject) HasRoom() bool {
	return s.RoomID != nil && *s.RoomID != ""
}

// CurriculumEntry links a subject to a group that must attend it.
type CurriculumEntry struct {
	GroupID   string `db:"group_id" json:"group_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
}
