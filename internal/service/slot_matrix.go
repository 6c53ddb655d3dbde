package service

import (
	"fmt"

	"github.com/noah-isme/uni-timetable-api/internal/models"
)

type slotKey struct {
	dayID      string
	timeSlotID string
	parity     models.WeekParity
}

type slotClaim struct {
	subjectID    string
	subjectTitle string
}

// slotClaims holds everything committed to one slot key, tagged by resource kind.
type slotClaims struct {
	groups   map[string]slotClaim
	rooms    map[string]slotClaim
	teachers map[string]slotClaim
}

func newSlotClaims() *slotClaims {
	return &slotClaims{
		groups:   make(map[string]slotClaim),
		rooms:    make(map[string]slotClaim),
		teachers: make(map[string]slotClaim),
	}
}

// Placement is one obligation committed to a slot by the generator.
type Placement struct {
	Subject    models.Subject
	Group      models.Group
	Day        models.Day
	TimeSlot   models.TimeSlot
	WeekParity models.WeekParity
}

// slotMatrix tracks claims made during a single generation attempt. It is
// discarded whole when the attempt fails.
type slotMatrix struct {
	claims     map[slotKey]*slotClaims
	placements []Placement
}

func newSlotMatrix() *slotMatrix {
	return &slotMatrix{claims: make(map[slotKey]*slotClaims)}
}

func (m *slotMatrix) at(key slotKey) *slotClaims {
	claims, ok := m.claims[key]
	if !ok {
		claims = newSlotClaims()
		m.claims[key] = claims
	}
	return claims
}

// seed records a persisted assignment so generated placements avoid it.
func (m *slotMatrix) seed(assignment models.SubjectSchedule) {
	key := slotKey{dayID: assignment.DayID, timeSlotID: assignment.TimeSlotID, parity: assignment.WeekParity}
	claim := slotClaim{subjectID: assignment.SubjectID, subjectTitle: assignment.SubjectTitle}
	claims := m.at(key)
	for _, groupID := range assignment.GroupIDs {
		claims.groups[groupID] = claim
	}
	if assignment.RoomID != nil && *assignment.RoomID != "" {
		claims.rooms[*assignment.RoomID] = claim
	}
	for _, teacherID := range assignment.TeacherIDs {
		claims.teachers[teacherID] = claim
	}
}

// canPlace checks every key whose parity overlaps the requested one. The
// returned reason is empty when the placement is allowed.
func (m *slotMatrix) canPlace(subject models.Subject, group models.Group, day models.Day, slot models.TimeSlot, parity models.WeekParity) (bool, string) {
	for _, p := range parity.Overlapping() {
		claims, ok := m.claims[slotKey{dayID: day.ID, timeSlotID: slot.ID, parity: p}]
		if !ok {
			continue
		}
		if _, busy := claims.groups[group.ID]; busy {
			return false, fmt.Sprintf("group %s is already busy on %s, slot %d", group.Title, day.Title, slot.Number)
		}
		if subject.HasRoom() {
			if holder, taken := claims.rooms[*subject.RoomID]; taken && holder.subjectID != subject.ID {
				return false, fmt.Sprintf("room %s is taken by %s on %s, slot %d", roomLabel(subject), holder.subjectTitle, day.Title, slot.Number)
			}
		}
		for i, teacherID := range subject.TeacherIDs {
			if holder, taken := claims.teachers[teacherID]; taken && holder.subjectID != subject.ID {
				return false, fmt.Sprintf("teacher %s already teaches %s on %s, slot %d", teacherLabel(subject, i), holder.subjectTitle, day.Title, slot.Number)
			}
		}
	}
	return true, ""
}

// place commits the obligation under the key. Re-placing the same subject
// overwrites its own room and teacher claims.
func (m *slotMatrix) place(subject models.Subject, group models.Group, day models.Day, slot models.TimeSlot, parity models.WeekParity) {
	claims := m.at(slotKey{dayID: day.ID, timeSlotID: slot.ID, parity: parity})
	claim := slotClaim{subjectID: subject.ID, subjectTitle: subject.Title}
	claims.groups[group.ID] = claim
	if subject.HasRoom() {
		claims.rooms[*subject.RoomID] = claim
	}
	for _, teacherID := range subject.TeacherIDs {
		claims.teachers[teacherID] = claim
	}
	m.placements = append(m.placements, Placement{
		Subject:    subject,
		Group:      group,
		Day:        day,
		TimeSlot:   slot,
		WeekParity: parity,
	})
}

func roomLabel(subject models.Subject) string {
	if subject.RoomNumber != nil && *subject.RoomNumber != "" {
		return *subject.RoomNumber
	}
	return *subject.RoomID
}

func teacherLabel(subject models.Subject, index int) string {
	if index < len(subject.TeacherNames) && subject.TeacherNames[index] != "" {
		return subject.TeacherNames[index]
	}
	return subject.TeacherIDs[index]
}
