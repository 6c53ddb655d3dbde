package service

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/noah-isme/uni-timetable-api/internal/models"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

const (
	defaultGenerationAttempts = 100
	conflictLogTail           = 10
)

// TimeWindow restricts candidate slots to those starting inside [Start, End].
type TimeWindow struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`

	start int
	end   int
}

// Contains reports whether the slot starts inside the window, bounds included.
func (w TimeWindow) Contains(slot models.TimeSlot) bool {
	minutes := slot.StartMinutes()
	return w.start <= minutes && minutes <= w.end
}

func newTimeWindow(key, name, description string, startHour, startMinute, endHour, endMinute int) TimeWindow {
	start := startHour*60 + startMinute
	end := endHour*60 + endMinute
	return TimeWindow{
		Key:         key,
		Name:        name,
		Description: description,
		StartTime:   formatClock(start),
		EndTime:     formatClock(end),
		start:       start,
		end:         end,
	}
}

var timeWindowPresets = []TimeWindow{
	newTimeWindow("morning", "Morning classes", "Classes from the morning until lunch (08:00-14:30)", 8, 0, 14, 30),
	newTimeWindow("mixed", "Mixed classes", "Classes from late morning into the afternoon (11:30-17:00)", 11, 30, 17, 0),
	newTimeWindow("afternoon", "Afternoon classes", "Classes in the second half of the day (13:00-18:20)", 13, 0, 18, 20),
	newTimeWindow("evening", "Evening classes", "Evening classes (16:00-21:00)", 16, 0, 21, 0),
	newTimeWindow("full", "Whole day", "Every available time slot (08:00-21:00)", 8, 0, 21, 0),
}

// AvailableTimeWindows lists the named presets accepted by the generator.
func AvailableTimeWindows() []TimeWindow {
	out := make([]TimeWindow, len(timeWindowPresets))
	copy(out, timeWindowPresets)
	return out
}

// ResolveTimeWindow picks the custom bounds when both are given, then the
// preset, and returns nil when neither is set so every slot qualifies.
func ResolveTimeWindow(preset, customStart, customEnd string) (*TimeWindow, error) {
	if customStart != "" || customEnd != "" {
		if customStart == "" || customEnd == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom time window needs both start and end time")
		}
		start, err := parseClock(customStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid custom start time")
		}
		end, err := parseClock(customEnd)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid custom end time")
		}
		if end <= start {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom end time must be after start time")
		}
		window := newTimeWindow("custom", "Custom window", "", start/60, start%60, end/60, end%60)
		window.Description = fmt.Sprintf("Custom window (%s-%s)", window.StartTime, window.EndTime)
		return &window, nil
	}

	if preset == "" {
		return nil, nil
	}
	for _, window := range timeWindowPresets {
		if window.Key == preset {
			w := window
			return &w, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time window %q", preset))
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", raw, err)
	}
	return models.ClockMinutes(t), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DayRange bounds the days considered by the generator. A single bound
// selects exactly that day.
type DayRange struct {
	StartDayID string
	EndDayID   string
}

// filterDays applies the range to days already ordered by sequence and
// returns a description of the selection.
func filterDays(days []models.Day, dayRange DayRange) ([]models.Day, string, error) {
	if dayRange.StartDayID == "" && dayRange.EndDayID == "" {
		return days, "", nil
	}

	index := make(map[string]models.Day, len(days))
	for _, day := range days {
		index[day.ID] = day
	}

	if dayRange.StartDayID == "" || dayRange.EndDayID == "" {
		id := dayRange.StartDayID
		if id == "" {
			id = dayRange.EndDayID
		}
		day, ok := index[id]
		if !ok {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "day not found")
		}
		return []models.Day{day}, fmt.Sprintf("Day: %s", day.Title), nil
	}

	startDay, ok := index[dayRange.StartDayID]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "start day not found")
	}
	endDay, ok := index[dayRange.EndDayID]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "end day not found")
	}
	if startDay.Sequence > endDay.Sequence {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "start day must not be after end day")
	}

	selected := make([]models.Day, 0, len(days))
	for _, day := range days {
		if day.Sequence >= startDay.Sequence && day.Sequence <= endDay.Sequence {
			selected = append(selected, day)
		}
	}
	return selected, fmt.Sprintf("Days: %s to %s", startDay.Title, endDay.Title), nil
}

// CandidateSlot is a (day, time slot) pair the generator may use.
type CandidateSlot struct {
	Day      models.Day
	TimeSlot models.TimeSlot
}

// buildCandidatePool forms the day x slot product sorted by day sequence and
// then slot number, ascending when mornings are preferred, descending otherwise.
func buildCandidatePool(days []models.Day, slots []models.TimeSlot, window *TimeWindow, preferMorning bool) []CandidateSlot {
	usable := slots
	if window != nil {
		usable = make([]models.TimeSlot, 0, len(slots))
		for _, slot := range slots {
			if window.Contains(slot) {
				usable = append(usable, slot)
			}
		}
	}

	pool := make([]CandidateSlot, 0, len(days)*len(usable))
	for _, day := range days {
		for _, slot := range usable {
			pool = append(pool, CandidateSlot{Day: day, TimeSlot: slot})
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Day.Sequence != b.Day.Sequence {
			return a.Day.Sequence < b.Day.Sequence
		}
		if preferMorning {
			return a.TimeSlot.Number < b.TimeSlot.Number
		}
		return a.TimeSlot.Number > b.TimeSlot.Number
	})
	return pool
}

// Obligation is one (subject, group) pair needing exactly one slot.
type Obligation struct {
	Subject models.Subject
	Group   models.Group
}

// conflictLog counts every rejected placement and keeps the most recent ones.
type conflictLog struct {
	total int
	tail  []string
}

func (l *conflictLog) add(entry string) {
	l.total++
	l.tail = append(l.tail, entry)
	if len(l.tail) > conflictLogTail {
		l.tail = l.tail[len(l.tail)-conflictLogTail:]
	}
}

// searchOutcome is the result of one call to generationSearch.run.
type searchOutcome struct {
	Success     bool
	Attempts    int
	Placements  []Placement
	Conflicts   int
	ConflictLog []string
}

// generationSearch is the round-robin, shuffle-and-retry placement search.
// It holds no storage handles; one value serves a single generate call.
type generationSearch struct {
	obligations []Obligation
	candidates  []CandidateSlot
	seeds       []models.SubjectSchedule
	maxAttempts int
	rng         *rand.Rand
	log         conflictLog
}

func newGenerationSearch(obligations []Obligation, candidates []CandidateSlot, seeds []models.SubjectSchedule, maxAttempts int, rng *rand.Rand) *generationSearch {
	if maxAttempts <= 0 {
		maxAttempts = defaultGenerationAttempts
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	order := make([]Obligation, len(obligations))
	copy(order, obligations)
	return &generationSearch{
		obligations: order,
		candidates:  candidates,
		seeds:       seeds,
		maxAttempts: maxAttempts,
		rng:         rng,
	}
}

func (g *generationSearch) run() searchOutcome {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if matrix, ok := g.attempt(); ok {
			return searchOutcome{
				Success:     true,
				Attempts:    attempt,
				Placements:  matrix.placements,
				Conflicts:   g.log.total,
				ConflictLog: g.log.tail,
			}
		}
		g.rng.Shuffle(len(g.obligations), func(i, j int) {
			g.obligations[i], g.obligations[j] = g.obligations[j], g.obligations[i]
		})
	}
	return searchOutcome{
		Success:     false,
		Attempts:    g.maxAttempts,
		Conflicts:   g.log.total,
		ConflictLog: g.log.tail,
	}
}

// attempt places every obligation against a fresh matrix, cycling the start
// day so obligations spread evenly across days. It fails as soon as one
// obligation finds no slot on any day.
func (g *generationSearch) attempt() (*slotMatrix, bool) {
	matrix := newSlotMatrix()
	for _, seed := range g.seeds {
		matrix.seed(seed)
	}

	var days []models.Day
	slotsByDay := make(map[string][]CandidateSlot)
	for _, candidate := range g.candidates {
		if _, seen := slotsByDay[candidate.Day.ID]; !seen {
			days = append(days, candidate.Day)
		}
		slotsByDay[candidate.Day.ID] = append(slotsByDay[candidate.Day.ID], candidate)
	}
	if len(days) == 0 {
		return matrix, len(g.obligations) == 0
	}

	dayIndex := 0
	for _, obligation := range g.obligations {
		placed := false
		for tried := 0; tried < len(days) && !placed; {
			day := days[dayIndex%len(days)]
			for _, candidate := range slotsByDay[day.ID] {
				ok, reason := matrix.canPlace(obligation.Subject, obligation.Group, candidate.Day, candidate.TimeSlot, models.WeekParityBoth)
				if !ok {
					g.log.add(reason)
					continue
				}
				matrix.place(obligation.Subject, obligation.Group, candidate.Day, candidate.TimeSlot, models.WeekParityBoth)
				placed = true
				break
			}
			if !placed {
				tried++
				dayIndex++
			}
		}
		if !placed {
			return nil, false
		}
		dayIndex++
	}
	return matrix, true
}
