// Package profile stores the onboarding questionnaire and mood log that
// drive quest selection.
//
// A Snapshot is a closed, typed document: each onboarding step replaces
// exactly one section, and the mood log only ever grows.
package profile
