package profile

import (
	"slices"
	"time"
)

// Onboarding step names. All five must be completed or skipped for
// onboarding to be complete.
const (
	StepMood              = "mood"
	StepPersonalityTraits = "personalityTraits"
	StepEmotionalNeeds    = "emotionalNeeds"
	StepSelfPerception    = "selfPerception"
	StepQuestResponses    = "questResponses"
)

// RequiredSteps lists the onboarding steps in presentation order.
var RequiredSteps = []string{
	StepMood,
	StepPersonalityTraits,
	StepEmotionalNeeds,
	StepSelfPerception,
	StepQuestResponses,
}

// Frequency is how often the user reports feeling their general mood.
type Frequency string

const (
	FrequencyRarely    Frequency = "rarely"
	FrequencySometimes Frequency = "sometimes"
	FrequencyOften     Frequency = "often"
	FrequencyAlways    Frequency = "always"
)

// Valid reports whether f is empty or one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case "", FrequencyRarely, FrequencySometimes, FrequencyOften, FrequencyAlways:
		return true
	}
	return false
}

// Mood is the mood onboarding section.
type Mood struct {
	General          string    `json:"general"`
	Frequency        Frequency `json:"frequency,omitempty"`
	Triggers         []string  `json:"triggers,omitempty"`
	CopingMechanisms []string  `json:"copingMechanisms,omitempty"`
}

// BigFive holds OCEAN scores.
type BigFive struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// PersonalityTraits is the personality onboarding section.
type PersonalityTraits struct {
	MBTI      string  `json:"mbti,omitempty"`
	Enneagram string  `json:"enneagram,omitempty"`
	BigFive   BigFive `json:"bigFive"`
}

// EmotionalNeeds is the emotional needs onboarding section.
type EmotionalNeeds struct {
	Primary            []string `json:"primary,omitempty"`
	Secondary          []string `json:"secondary,omitempty"`
	UnmetNeeds         []string `json:"unmetNeeds,omitempty"`
	SupportPreferences []string `json:"supportPreferences,omitempty"`
}

// SelfPerception is the self perception onboarding section.
type SelfPerception struct {
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	GrowthAreas []string `json:"growthAreas,omitempty"`
	Values      []string `json:"values,omitempty"`
}

// QuestResponses is the free-form questionnaire section.
type QuestResponses struct {
	PastChallenges   []string `json:"pastChallenges,omitempty"`
	CopingStrategies []string `json:"copingStrategies,omitempty"`
	FutureGoals      []string `json:"futureGoals,omitempty"`
	SupportSystem    []string `json:"supportSystem,omitempty"`
}

// MoodEntry is one dated mood log record.
type MoodEntry struct {
	Date time.Time `json:"date"`
	Mood
}

// Snapshot is a user's complete profile.
type Snapshot struct {
	UserID               string            `json:"userId"`
	Mood                 Mood              `json:"mood"`
	PersonalityTraits    PersonalityTraits `json:"personalityTraits"`
	EmotionalNeeds       EmotionalNeeds    `json:"emotionalNeeds"`
	SelfPerception       SelfPerception    `json:"selfPerception"`
	QuestResponses       QuestResponses    `json:"questResponses"`
	CompletedSteps       []string          `json:"completedSteps"`
	IsOnboardingComplete bool              `json:"isOnboardingComplete"`
	LastUpdated          time.Time         `json:"lastUpdated"`
	MoodLog              []MoodEntry       `json:"moodLog"`
}

// IsKnownStep reports whether step is an onboarding step name.
func IsKnownStep(step string) bool {
	return slices.Contains(RequiredSteps, step)
}

// markCompleted appends step to CompletedSteps once and recomputes
// IsOnboardingComplete.
func (s *Snapshot) markCompleted(step string) {
	if !slices.Contains(s.CompletedSteps, step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
	complete := true
	for _, req := range RequiredSteps {
		if !slices.Contains(s.CompletedSteps, req) {
			complete = false
			break
		}
	}
	s.IsOnboardingComplete = complete
}

// NewSnapshot returns an empty profile for userID.
func NewSnapshot(userID string) *Snapshot {
	return &Snapshot{UserID: userID, CompletedSteps: []string{}, MoodLog: []MoodEntry{}}
}

// Clone returns a deep copy so stored snapshots cannot be mutated by callers.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Mood = s.Mood.clone()
	c.EmotionalNeeds = EmotionalNeeds{
		Primary:            slices.Clone(s.EmotionalNeeds.Primary),
		Secondary:          slices.Clone(s.EmotionalNeeds.Secondary),
		UnmetNeeds:         slices.Clone(s.EmotionalNeeds.UnmetNeeds),
		SupportPreferences: slices.Clone(s.EmotionalNeeds.SupportPreferences),
	}
	c.SelfPerception = SelfPerception{
		Strengths:   slices.Clone(s.SelfPerception.Strengths),
		Weaknesses:  slices.Clone(s.SelfPerception.Weaknesses),
		GrowthAreas: slices.Clone(s.SelfPerception.GrowthAreas),
		Values:      slices.Clone(s.SelfPerception.Values),
	}
	c.QuestResponses = QuestResponses{
		PastChallenges:   slices.Clone(s.QuestResponses.PastChallenges),
		CopingStrategies: slices.Clone(s.QuestResponses.CopingStrategies),
		FutureGoals:      slices.Clone(s.QuestResponses.FutureGoals),
		SupportSystem:    slices.Clone(s.QuestResponses.SupportSystem),
	}
	c.CompletedSteps = slices.Clone(s.CompletedSteps)
	c.MoodLog = make([]MoodEntry, len(s.MoodLog))
	for i, e := range s.MoodLog {
		c.MoodLog[i] = MoodEntry{Date: e.Date, Mood: e.Mood.clone()}
	}
	return &c
}

func (m Mood) clone() Mood {
	m.Triggers = slices.Clone(m.Triggers)
	m.CopingMechanisms = slices.Clone(m.CopingMechanisms)
	return m
}
