// Package quest recommends a daily quest from the user's profile and records
// at most one assignment per user per calendar day.
//
// Selection is a pure function of the profile snapshot and the date. The
// side effect of counting an assignment lives in Service.Today, behind an
// idempotent AssignmentStore keyed by user and day.
package quest

import (
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
)

// Type is the quest cadence.
type Type string

const (
	TypeDaily  Type = "daily"
	TypeWeekly Type = "weekly"
)

// ParseType validates a quest type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDaily, TypeWeekly:
		return Type(s), nil
	}
	return "", errs.Invalid("quest type must be daily or weekly, got %q", s)
}

// Quest is a catalog entry. Title is the unique key.
type Quest struct {
	Title       string `toml:"title" json:"title"`
	Description string `toml:"description" json:"description"`
	Type        Type   `toml:"type" json:"type"`
	SuggestedBy string `toml:"suggested_by" json:"suggestedBy"`
}

// Activity is one dated piece of quest activity by a user, such as a
// reflection or a quest start.
type Activity struct {
	QuestTitle string    `json:"questTitle"`
	QuestType  Type      `json:"questType"`
	At         time.Time `json:"at"`
}

// DayKey returns the calendar day of t in its own location, as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// sameDay reports whether a and b fall on the same calendar day in b's location.
func sameDay(a, b time.Time) bool {
	return DayKey(a.In(b.Location())) == DayKey(b)
}
