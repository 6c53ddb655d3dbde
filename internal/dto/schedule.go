package dto

import "strings"

// GenerateScheduleRequest asks the generator to place every (subject, group)
// obligation for the listed groups.
type GenerateScheduleRequest struct {
	GroupIDs      []string `json:"groupIds" validate:"required,min=1,dive,required"`
	SubjectIDs    []string `json:"subjectIds" validate:"omitempty,dive,required"`
	ClearExisting bool     `json:"clearExisting"`
	PreferMorning *bool    `json:"preferMorning"`
	TimeWindow    string   `json:"timeWindow" validate:"omitempty,oneof=morning mixed afternoon evening full"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	StartDayID    string   `json:"startDayId"`
	EndDayID      string   `json:"endDayId"`
	MaxAttempts   int      `json:"maxAttempts" validate:"omitempty,min=1,max=1000"`
}

// MorningPreferred defaults to true when the flag is omitted.
func (r GenerateScheduleRequest) MorningPreferred() bool {
	return r.PreferMorning == nil || *r.PreferMorning
}

// GenerationStatistics summarises a generation run.
type GenerationStatistics struct {
	TotalGroups      int `json:"totalGroups"`
	TotalSubjects    int `json:"totalSubjects"`
	AssignedSubjects int `json:"assignedSubjects"`
	Conflicts        int `json:"conflicts"`
}

// GenerationResult is returned for both feasible and infeasible runs.
type GenerationResult struct {
	Success    bool                 `json:"success"`
	Attempts   int                  `json:"attempts"`
	Messages   []string             `json:"messages"`
	Statistics GenerationStatistics `json:"statistics"`
}

// ValidationResult lists every conflict found among the groups' subjects.
type ValidationResult struct {
	IsValid   bool     `json:"isValid"`
	Conflicts []string `json:"conflicts"`
}

// ScheduleStatistics aggregates persisted assignments for a group set.
type ScheduleStatistics struct {
	TotalGroups             int     `json:"totalGroups"`
	TotalSubjects           int     `json:"totalSubjects"`
	SubjectsWithSchedule    int     `json:"subjectsWithSchedule"`
	SubjectsWithoutSchedule int     `json:"subjectsWithoutSchedule"`
	TotalScheduleSlots      int     `json:"totalScheduleSlots"`
	AverageSlotsPerSubject  float64 `json:"averageSlotsPerSubject"`
}

// FillPercentage is the share of subjects holding at least one assignment.
func (s ScheduleStatistics) FillPercentage() float64 {
	if s.TotalSubjects == 0 {
		return 0
	}
	return float64(s.SubjectsWithSchedule) / float64(s.TotalSubjects) * 100
}

// GroupIDsQuery binds the comma separated groupIds query parameter.
type GroupIDsQuery struct {
	GroupIDs string `form:"groupIds" binding:"required"`
}

// IDs splits the parameter into trimmed, non-empty ids.
func (q GroupIDsQuery) IDs() []string {
	var ids []string
	for _, part := range strings.Split(q.GroupIDs, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
