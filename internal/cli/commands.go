package cli

import (
	"errors"
	"strings"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
)

// GenerateCmd places the obligations of the given groups.
type GenerateCmd struct {
	Groups        []string `help:"Group IDs (repeat or comma separate)." required:"" sep:","`
	Subjects      []string `help:"Limit generation to these subject IDs." sep:","`
	Clear         bool     `help:"Clear the groups' existing assignments of the scheduled subjects first."`
	PreferEvening bool     `help:"Fill late slots first instead of early ones."`
	TimeWindow    string   `help:"Named time window: morning, mixed, afternoon, evening or full."`
	StartTime     string   `help:"Custom window start (HH:MM)."`
	EndTime       string   `help:"Custom window end (HH:MM)."`
	StartDay      string   `help:"First day ID of the range."`
	EndDay        string   `help:"Last day ID of the range."`
	Attempts      int      `help:"Maximum search attempts." default:"0"`
}

// Run executes the generation and validates the result when it succeeds.
func (c *GenerateCmd) Run(ctx *Context) error {
	groupIDs := normalizeIDs(c.Groups)
	preferMorning := !c.PreferEvening
	req := dto.GenerateScheduleRequest{
		GroupIDs:      groupIDs,
		SubjectIDs:    normalizeIDs(c.Subjects),
		ClearExisting: c.Clear,
		PreferMorning: &preferMorning,
		TimeWindow:    c.TimeWindow,
		StartTime:     c.StartTime,
		EndTime:       c.EndTime,
		StartDayID:    c.StartDay,
		EndDayID:      c.EndDay,
		MaxAttempts:   c.Attempts,
	}

	ctx.heading("SCHEDULE GENERATION")
	if c.Clear {
		ctx.printf("! Existing schedule of the selected subjects will be cleared\n")
	}
	if preferMorning {
		ctx.printf("Priority: morning slots\n\n")
	} else {
		ctx.printf("Priority: evening slots\n\n")
	}

	result, err := ctx.Generator.Generate(ctx.Ctx, req)
	if err != nil {
		return err
	}
	for _, message := range result.Messages {
		lower := strings.ToLower(message)
		switch {
		case strings.Contains(lower, "generated in"):
			ctx.printf("✓ %s\n", message)
		case strings.Contains(lower, "failed") || strings.Contains(lower, "conflict"):
			ctx.printf("✗ %s\n", message)
		default:
			ctx.printf("  %s\n", message)
		}
	}

	stats := result.Statistics
	ctx.printf("\nSTATISTICS\n")
	ctx.printf("  Groups: %d\n", stats.TotalGroups)
	ctx.printf("  Subjects: %d\n", stats.TotalSubjects)
	ctx.printf("  Assigned slots: %d\n", stats.AssignedSubjects)
	ctx.printf("  Conflicts: %d\n", stats.Conflicts)

	if !result.Success {
		return errors.New("schedule generation failed, see messages above")
	}
	ctx.printf("\n✓ Schedule generated\nRunning validation...\n")
	return (&ValidateCmd{Groups: groupIDs}).Run(ctx)
}

// ValidateCmd re-checks the persisted assignments of the groups.
type ValidateCmd struct {
	Groups []string `help:"Group IDs (repeat or comma separate)." required:"" sep:","`
}

// Run prints every conflict or a confirmation.
func (c *ValidateCmd) Run(ctx *Context) error {
	result, err := ctx.Inspector.Validate(ctx.Ctx, normalizeIDs(c.Groups))
	if err != nil {
		return err
	}
	ctx.heading("SCHEDULE VALIDATION")
	if result.IsValid {
		message := "Schedule is valid"
		if len(result.Conflicts) > 0 {
			message = result.Conflicts[0]
		}
		ctx.printf("✓ %s\n", message)
		return nil
	}
	ctx.printf("✗ Conflicts found: %d\n\n", len(result.Conflicts))
	for i, conflict := range result.Conflicts {
		ctx.printf("  %d. %s\n", i+1, conflict)
	}
	return nil
}

// StatsCmd summarises the groups' assignments.
type StatsCmd struct {
	Groups []string `help:"Group IDs (repeat or comma separate)." required:"" sep:","`
}

// Run prints the statistics and the fill percentage.
func (c *StatsCmd) Run(ctx *Context) error {
	stats, err := ctx.Inspector.Statistics(ctx.Ctx, normalizeIDs(c.Groups))
	if err != nil {
		return err
	}
	ctx.heading("SCHEDULE STATISTICS")
	ctx.printf("Groups: %d\n", stats.TotalGroups)
	ctx.printf("Subjects: %d\n", stats.TotalSubjects)
	ctx.printf("With schedule: %d\n", stats.SubjectsWithSchedule)
	ctx.printf("Without schedule: %d\n", stats.SubjectsWithoutSchedule)
	ctx.printf("Total slots: %d\n", stats.TotalScheduleSlots)
	ctx.printf("Average slots per subject: %.2f\n", stats.AverageSlotsPerSubject)
	if stats.TotalSubjects > 0 {
		ctx.printf("Filled: %.1f%%\n", stats.FillPercentage())
	}
	return nil
}

// TimeWindowsCmd lists the named time windows.
type TimeWindowsCmd struct{}

// Run prints one line per window.
func (c *TimeWindowsCmd) Run(ctx *Context) error {
	for _, window := range ctx.Inspector.TimeWindows() {
		ctx.printf("%-10s %s-%s  %s\n", window.Key, window.StartTime, window.EndTime, window.Description)
	}
	return nil
}
