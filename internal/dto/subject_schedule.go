package dto

// SubjectScheduleRequest creates or replaces an assignment by hand.
type SubjectScheduleRequest struct {
	SubjectID  string   `json:"subjectId" validate:"required"`
	DayID      string   `json:"dayId" validate:"required"`
	TimeSlotID string   `json:"timeSlotId" validate:"required"`
	WeekParity string   `json:"weekParity" validate:"required,oneof=EVEN ODD BOTH"`
	GroupIDs   []string `json:"groupIds" validate:"required,min=1,dive,required"`
	TeacherIDs []string `json:"teacherIds" validate:"omitempty,dive,required"`
}

// ClearGroupScheduleRequest removes a group from its assignments of the subjects.
type ClearGroupScheduleRequest struct {
	GroupID    string   `json:"groupId" validate:"required"`
	SubjectIDs []string `json:"subjectIds" validate:"required,min=1,dive,required"`
}

// ClearGroupScheduleResult reports what clearing touched.
type ClearGroupScheduleResult struct {
	Detached int `json:"detached"`
	Deleted  int `json:"deleted"`
}

// FreeTimeSlotsQuery asks which slots of a day are free for every given resource.
type FreeTimeSlotsQuery struct {
	DayID      string `form:"dayId" json:"dayId" validate:"required"`
	GroupID    string `form:"groupId" json:"groupId"`
	TeacherID  string `form:"teacherId" json:"teacherId"`
	RoomID     string `form:"roomId" json:"roomId"`
	WeekParity string `form:"weekParity" json:"weekParity" validate:"omitempty,oneof=EVEN ODD BOTH"`
}
