package dto

// ScheduleOverrideRequest creates or replaces a date-specific exception.
type ScheduleOverrideRequest struct {
	SubjectID   string  `json:"subjectId" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlotID  string  `json:"timeSlotId" validate:"required"`
	RoomID      *string `json:"roomId" validate:"omitempty,min=1"`
	IsCancelled bool    `json:"isCancelled"`
	Notes       string  `json:"notes" validate:"max=2000"`
}

// ScheduleOverrideQuery binds list filters from the query string.
type ScheduleOverrideQuery struct {
	SubjectID   string `form:"subject_id"`
	Date        string `form:"date"`
	DateFrom    string `form:"date_from"`
	DateTo      string `form:"date_to"`
	IsCancelled string `form:"is_cancelled"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
