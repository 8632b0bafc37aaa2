package quest

import (
	"slices"
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/profile"
)

// Quest titles the selection rules point at.
const (
	TitleGratitudeJournal = "Gratitude Journal"
	TitleReachOut         = "Reach Out"
	TitleMindfulWalk      = "Mindful Walk"
)

// rule matches a profile to a catalog quest by title.
type rule struct {
	name  string
	title string
	match func(p *profile.Snapshot) bool
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		name:  "needs_calm",
		title: TitleMindfulWalk,
		match: func(p *profile.Snapshot) bool {
			return p.Mood.General == "Stressed" ||
				p.Mood.Frequency == profile.FrequencyOften ||
				len(p.Mood.CopingMechanisms) < 2
		},
	},
	{
		name:  "seeks_connection",
		title: TitleReachOut,
		match: func(p *profile.Snapshot) bool {
			return slices.Contains(p.EmotionalNeeds.Primary, "Connection")
		},
	},
	{
		name:  "growing_gratitude",
		title: TitleGratitudeJournal,
		match: func(p *profile.Snapshot) bool {
			return slices.Contains(p.SelfPerception.GrowthAreas, "Gratitude")
		},
	},
}

// Selection is a recommendation and the rule that produced it.
type Selection struct {
	Quest Quest
	Rule  string
}

// Selector picks a quest from a fixed catalog. It is safe for concurrent use.
type Selector struct {
	catalog *Catalog
}

// NewSelector creates a selector over catalog.
func NewSelector(catalog *Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Select returns the recommended quest for the profile on the given day.
// It has no side effects; the same inputs always give the same quest.
func (s *Selector) Select(p *profile.Snapshot, today time.Time) Quest {
	return s.Explain(p, today).Quest
}

// Explain is Select plus the name of the rule that fired.
func (s *Selector) Explain(p *profile.Snapshot, today time.Time) Selection {
	if p == nil {
		return Selection{Quest: s.catalog.First(), Rule: "no_profile"}
	}
	for _, r := range rules {
		if !r.match(p) {
			continue
		}
		q, ok := s.catalog.ByTitle(r.title)
		if !ok {
			q = s.catalog.First()
		}
		return Selection{Quest: q, Rule: r.name}
	}
	return Selection{
		Quest: s.catalog.At(today.Day() % s.catalog.Len()),
		Rule:  "rotation",
	}
}
