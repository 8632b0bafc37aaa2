// Package reflection scores and stores the reflections users write about
// their quests, and pays out spark points for them.
//
// Scoring is pure: CalculatePoints and CalculateQualityScore depend only on
// the quest type and which of text, image and audio are present. Media is
// referenced by URL; this package never stores blobs.
package reflection
