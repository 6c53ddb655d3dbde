package models

import "time"

// ScheduleOverride is a one-off deviation from the recurring timetable on a
// concrete date: a cancellation or a relocation to another room.
type ScheduleOverride struct {
	ID             string    `db:"id" json:"id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	SubjectTitle   string    `db:"subject_title" json:"subject_title"`
	Date           time.Time `db:"date" json:"date"`
	TimeSlotID     string    `db:"time_slot_id" json:"time_slot_id"`
	TimeSlotNumber int       `db:"time_slot_number" json:"time_slot_number"`
	RoomID         *string   `db:"room_id" json:"room_id,omitempty"`
	IsCancelled    bool      `db:"is_cancelled" json:"is_cancelled"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleOverrideFilter narrows override listings.
type ScheduleOverrideFilter struct {
	SubjectID   string
	Date        *time.Time
	DateFrom    *time.Time
	DateTo      *time.Time
	IsCancelled *bool
	Page        int
	PageSize    int
}
