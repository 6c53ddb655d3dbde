package models

import "fmt"

// WeekParity is the recurrence pattern of an assignment across calendar weeks.
type WeekParity string

const (
	WeekParityEven WeekParity = "EVEN"
	WeekParityOdd  WeekParity = "ODD"
	WeekParityBoth WeekParity = "BOTH"
)

// WeekParities lists every parity in a stable order.
var WeekParities = []WeekParity{WeekParityEven, WeekParityOdd, WeekParityBoth}

// Valid reports whether p is one of the known parities.
func (p WeekParity) Valid() bool {
	switch p {
	case WeekParityEven, WeekParityOdd, WeekParityBoth:
		return true
	default:
		return false
	}
}

// Overlaps reports whether two assignments with these parities can meet in
// the same calendar week. BOTH overlaps everything; EVEN and ODD never meet.
func (p WeekParity) Overlaps(other WeekParity) bool {
	switch p {
	case WeekParityBoth:
		return other.Valid()
	case WeekParityEven:
		return other == WeekParityEven || other == WeekParityBoth
	case WeekParityOdd:
		return other == WeekParityOdd || other == WeekParityBoth
	default:
		return false
	}
}

// Overlapping returns every parity that overlaps p.
func (p WeekParity) Overlapping() []WeekParity {
	result := make([]WeekParity, 0, len(WeekParities))
	for _, candidate := range WeekParities {
		if p.Overlaps(candidate) {
			result = append(result, candidate)
		}
	}
	return result
}

// Label returns the human readable form used in conflict messages.
func (p WeekParity) Label() string {
	switch p {
	case WeekParityEven:
		return "even weeks"
	case WeekParityOdd:
		return "odd weeks"
	case WeekParityBoth:
		return "every week"
	default:
		return fmt.Sprintf("unknown parity %q", string(p))
	}
}

// ParseWeekParity accepts the canonical upper case value.
func ParseWeekParity(raw string) (WeekParity, error) {
	p := WeekParity(raw)
	if !p.Valid() {
		return "", fmt.Errorf("unknown week parity %q", raw)
	}
	return p, nil
}
