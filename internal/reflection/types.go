package reflection

import (
	"net/url"
	"time"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
)

// Kind distinguishes a written reflection from a quest-start marker.
type Kind string

const (
	KindSubmission Kind = "submission"
	KindStart      Kind = "start"
)

// MaxTextLength bounds reflection text, in characters.
const MaxTextLength = 10000

// Reflection is an immutable record of quest activity.
type Reflection struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"userId" db:"user_id"`
	QuestTitle   string     `json:"questTitle" db:"quest_title"`
	QuestType    quest.Type `json:"questType" db:"quest_type"`
	Text         string     `json:"text,omitempty" db:"text"`
	ImageURL     string     `json:"imageUrl,omitempty" db:"image_url"`
	AudioURL     string     `json:"audioUrl,omitempty" db:"audio_url"`
	QualityScore float64    `json:"qualityScore" db:"quality_score"`
	Kind         Kind       `json:"kind" db:"kind"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// SubmitRequest is a new reflection from a user.
type SubmitRequest struct {
	UserID     string        `json:"-"`
	QuestTitle string        `json:"questTitle"`
	QuestType  string        `json:"questType"`
	Text       string        `json:"text,omitempty"`
	ImageURL   string        `json:"imageUrl,omitempty"`
	AudioURL   string        `json:"audioUrl,omitempty"`
	Mood       *profile.Mood `json:"mood,omitempty"`
}

// Validate checks the request and returns the parsed quest type.
func (r *SubmitRequest) Validate() (quest.Type, error) {
	if r.UserID == "" {
		return "", errs.Invalid("user id is required")
	}
	if r.QuestTitle == "" {
		return "", errs.Invalid("questTitle is required")
	}
	qt, err := quest.ParseType(r.QuestType)
	if err != nil {
		return "", err
	}
	if textLen(r.Text) > MaxTextLength {
		return "", errs.Invalid("text exceeds %d characters", MaxTextLength)
	}
	if err := validateMediaURL("imageUrl", r.ImageURL); err != nil {
		return "", err
	}
	if err := validateMediaURL("audioUrl", r.AudioURL); err != nil {
		return "", err
	}
	if r.Mood != nil && !r.Mood.Frequency.Valid() {
		return "", errs.Invalid("unknown mood frequency %q", r.Mood.Frequency)
	}
	return qt, nil
}

// SubmitResult is the stored reflection and what it paid.
type SubmitResult struct {
	Reflection    *Reflection `json:"reflection"`
	PointsAwarded int         `json:"pointsAwarded"`
	QualityScore  float64     `json:"qualityScore"`
	Balance       int64       `json:"sparkPoints"`
}

// validateMediaURL accepts empty or absolute http(s) URLs.
func validateMediaURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.Invalid("%s must be an absolute http(s) URL", field)
	}
	return nil
}
