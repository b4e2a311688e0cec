package scheduler

import (
	"time"

	"github.com/example/shift-scheduler/internal/calendar"
)

// Slot is an occupied shift as seen by overlap detection.
type Slot struct {
	ShiftID   string
	Occupant  string
	Position  string
	Date      calendar.Date
	StartTime calendar.TimeOfDay
	EndTime   calendar.TimeOfDay
}

// Interval returns the absolute span of the slot. Slots that cross midnight end
// on the following day.
func (s Slot) Interval() (time.Time, time.Time) {
	start := s.Date.Time(time.UTC).Add(s.StartTime.Offset())
	return start, start.Add(calendar.ShiftDuration(s.StartTime, s.EndTime))
}

// ConflictType describes the type of conflict detected between shifts.
type ConflictType string

const (
	// ConflictTypeOccupant indicates a user is booked on two overlapping shifts.
	ConflictTypeOccupant ConflictType = "occupant"
)

// Conflict details an overlapping shift relation that callers can present to users.
type Conflict struct {
	WithShiftID string
	Type        ConflictType
	Occupant    string
	Position    string
}

// DetectOverlaps reports existing slots held by the candidate's occupant whose
// interval intersects the candidate. Touching intervals do not overlap.
func DetectOverlaps(existing []Slot, candidate Slot) []Conflict {
	if candidate.Occupant == "" {
		return nil
	}
	cStart, cEnd := candidate.Interval()
	if !cEnd.After(cStart) {
		return nil
	}

	var conflicts []Conflict
	for _, slot := range existing {
		if slot.ShiftID == candidate.ShiftID || slot.Occupant != candidate.Occupant {
			continue
		}
		sStart, sEnd := slot.Interval()
		if cStart.Before(sEnd) && sStart.Before(cEnd) {
			conflicts = append(conflicts, Conflict{
				WithShiftID: slot.ShiftID,
				Type:        ConflictTypeOccupant,
				Occupant:    slot.Occupant,
				Position:    slot.Position,
			})
		}
	}
	return conflicts
}
