// Package cli implements the timetable-cli commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	"github.com/noah-isme/uni-timetable-api/internal/service"
)

// Generator runs schedule generation.
type Generator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error)
}

// Inspector reads back persisted schedules.
type Inspector interface {
	Validate(ctx context.Context, groupIDs []string) (*dto.ValidationResult, error)
	Statistics(ctx context.Context, groupIDs []string) (*dto.ScheduleStatistics, error)
	TimeWindows() []service.TimeWindow
}

// Context is handed to every command's Run method.
type Context struct {
	Ctx       context.Context
	Generator Generator
	Inspector Inspector
	Out       io.Writer
}

const rule = "======================================================================"

func (c *Context) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) heading(title string) {
	c.printf("\n%s\n%s\n%s\n", rule, title, rule)
}

func normalizeIDs(raw []string) []string {
	var ids []string
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, part)
			}
		}
	}
	return ids
}
