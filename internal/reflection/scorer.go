package reflection

import (
	"math"
	"unicode/utf8"

	"github.com/fyrsmithlabs/sparkd/internal/quest"
)

// Point awards.
const (
	BasePointsDaily  = 10
	BasePointsWeekly = 25
	BonusLongText    = 5
	BonusImage       = 5
	BonusAudio       = 5

	// LongTextThreshold is the length a text must exceed to earn BonusLongText.
	LongTextThreshold = 100
)

// Quality score components.
const (
	MaxTextQuality = 5.0
	ImageQuality   = 2.0
	AudioQuality   = 2.0
	MaxQuality     = MaxTextQuality + ImageQuality + AudioQuality

	// textCharsPerPoint is how many characters of text earn one quality point.
	textCharsPerPoint = 20
)

// CalculatePoints returns the spark points a reflection earns. Empty
// strings count as absent.
func CalculatePoints(questType quest.Type, text, imageURL, audioURL string) int {
	points := BasePointsDaily
	if questType == quest.TypeWeekly {
		points = BasePointsWeekly
	}
	if textLen(text) > LongTextThreshold {
		points += BonusLongText
	}
	if imageURL != "" {
		points += BonusImage
	}
	if audioURL != "" {
		points += BonusAudio
	}
	return points
}

// CalculateQualityScore rates reflection richness in [0, MaxQuality],
// rounded to one decimal place.
func CalculateQualityScore(text, imageURL, audioURL string) float64 {
	score := math.Min(float64(textLen(text))/textCharsPerPoint, MaxTextQuality)
	if imageURL != "" {
		score += ImageQuality
	}
	if audioURL != "" {
		score += AudioQuality
	}
	return math.Round(score*10) / 10
}

// textLen counts characters, not bytes.
func textLen(s string) int {
	return utf8.RuneCountInString(s)
}
