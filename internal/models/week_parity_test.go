package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekParityOverlaps(t *testing.T) {
	cases := []struct {
		a, b WeekParity
		want bool
	}{
		{WeekParityBoth, WeekParityBoth, true},
		{WeekParityBoth, WeekParityEven, true},
		{WeekParityBoth, WeekParityOdd, true},
		{WeekParityEven, WeekParityEven, true},
		{WeekParityEven, WeekParityOdd, false},
		{WeekParityOdd, WeekParityEven, false},
		{WeekParityOdd, WeekParityBoth, true},
		{WeekParity("DAILY"), WeekParityBoth, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.a.Overlaps(tc.b), "%s vs %s", tc.a, tc.b)
		if tc.a.Valid() && tc.b.Valid() {
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a), "overlap must be symmetric for %s and %s", tc.a, tc.b)
		}
	}
}

func TestWeekParityOverlapping(t *testing.T) {
	assert.Equal(t, []WeekParity{WeekParityEven, WeekParityOdd, WeekParityBoth}, WeekParityBoth.Overlapping())
	assert.Equal(t, []WeekParity{WeekParityEven, WeekParityBoth}, WeekParityEven.Overlapping())
	assert.Equal(t, []WeekParity{WeekParityOdd, WeekParityBoth}, WeekParityOdd.Overlapping())
}

func TestParseWeekParity(t *testing.T) {
	p, err := ParseWeekParity("ODD")
	require.NoError(t, err)
	assert.Equal(t, WeekParityOdd, p)

	_, err = ParseWeekParity("odd")
	assert.Error(t, err)
}

func TestScheduleConflictMessage(t *testing.T) {
	conflict := ScheduleConflict{
		SubjectTitle:   "Algebra",
		DayTitle:       "Monday",
		TimeSlotNumber: 1,
		WeekParity:     WeekParityBoth,
		Dimension:      ConflictGroup,
		ResourceName:   "CS-101",
	}
	assert.Equal(t, "group CS-101 already attends Algebra on Monday, slot 1 (every week)", conflict.Message())

	conflict.Dimension = ConflictRoom
	conflict.ResourceName = "A-12"
	assert.Contains(t, conflict.Message(), "room A-12 is already taken by Algebra")
}

func TestSubjectScheduleLookups(t *testing.T) {
	schedule := SubjectSchedule{
		GroupIDs:     []string{"g-1", "g-2"},
		GroupTitles:  []string{"CS-101"},
		TeacherIDs:   []string{"t-1"},
		TeacherNames: []string{"Ada Lovelace"},
	}
	assert.True(t, schedule.HasGroup("g-2"))
	assert.False(t, schedule.HasGroup("g-3"))
	assert.True(t, schedule.HasTeacher("t-1"))
	assert.Equal(t, "CS-101", schedule.GroupTitle("g-1"))
	assert.Equal(t, "g-2", schedule.GroupTitle("g-2"))
	assert.Equal(t, "Ada Lovelace", schedule.TeacherName("t-1"))
}

func TestTimeSlotLabel(t *testing.T) {
	slot := TimeSlot{
		Number:    2,
		StartTime: time.Date(0, 1, 1, 9, 40, 0, 0, time.UTC),
		EndTime:   time.Date(0, 1, 1, 11, 10, 0, 0, time.UTC),
	}
	assert.Equal(t, 580, slot.StartMinutes())
	assert.Equal(t, "2 (09:40-11:10)", slot.Label())
}
