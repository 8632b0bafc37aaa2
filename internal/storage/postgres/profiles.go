package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
)

// storedMoodLog is the existing mood log as a JSON array; a missing or null
// log reads as empty.
const storedMoodLog = `(CASE WHEN jsonb_typeof(profiles.doc->'moodLog') = 'array' THEN profiles.doc->'moodLog' ELSE '[]'::jsonb END)`

// ProfileStore is a profile.Store keeping each snapshot as one JSONB
// document.
type ProfileStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ profile.Store = (*ProfileStore)(nil)

// NewProfileStore creates a ProfileStore.
func NewProfileStore(db *sqlx.DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

func (s *ProfileStore) Get(ctx context.Context, userID string) (*profile.Snapshot, error) {
	var doc []byte
	err := s.db.GetContext(ctx, &doc, `SELECT doc FROM profiles WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("profile", userID)
	}
	if err != nil {
		return nil, storeErr("profiles.get", err)
	}

	var snap profile.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, errs.Upstream("profiles.get", err)
	}
	snap.UserID = userID
	return &snap, nil
}

// Save replaces the profile sections. The stored mood log is kept, so a
// Save racing an AppendMood never drops an entry.
func (s *ProfileStore) Save(ctx context.Context, snap *profile.Snapshot) error {
	if snap == nil || snap.UserID == "" {
		return errs.Invalid("profile user id is required")
	}
	doc, err := json.Marshal(snap)
	if err != nil {
		return errs.Invalid("encoding profile: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET doc = jsonb_set(EXCLUDED.doc, '{moodLog}', `+storedMoodLog+`), updated_at = EXCLUDED.updated_at`,
		snap.UserID, string(doc), s.now().UTC())
	return storeErr("profiles.save", err)
}

// Update locks the profile row for the read-modify-write, so concurrent step
// updates of one user apply one after the other. The stored mood log is kept
// as in Save.
func (s *ProfileStore) Update(ctx context.Context, userID string, fn func(*profile.Snapshot) error) (snap *profile.Snapshot, err error) {
	if userID == "" {
		return nil, errs.Invalid("profile user id is required")
	}
	empty, err := json.Marshal(profile.NewSnapshot(userID))
	if err != nil {
		return nil, errs.Invalid("encoding profile: %v", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storeErr("profiles.update", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, doc, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING`, userID, string(empty), now); err != nil {
		return nil, storeErr("profiles.update", err)
	}

	var doc []byte
	if err = tx.GetContext(ctx, &doc, `SELECT doc FROM profiles WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
		return nil, storeErr("profiles.update", err)
	}
	snap = &profile.Snapshot{}
	if err = json.Unmarshal(doc, snap); err != nil {
		return nil, errs.Upstream("profiles.update", err)
	}
	snap.UserID = userID

	if err = fn(snap); err != nil {
		return nil, err
	}
	snap.UserID = userID

	if doc, err = json.Marshal(snap); err != nil {
		return nil, errs.Invalid("encoding profile: %v", err)
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE profiles SET doc = jsonb_set($2::jsonb, '{moodLog}', `+storedMoodLog+`), updated_at = $3
		WHERE user_id = $1`, userID, string(doc), now); err != nil {
		return nil, storeErr("profiles.update", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, storeErr("profiles.update", err)
	}
	return snap, nil
}

func (s *ProfileStore) AppendMood(ctx context.Context, userID string, entry profile.MoodEntry) error {
	if userID == "" {
		return errs.Invalid("user id is required")
	}
	entries, err := json.Marshal([]profile.MoodEntry{entry})
	if err != nil {
		return errs.Invalid("encoding mood entry: %v", err)
	}
	doc, err := json.Marshal(profile.Snapshot{UserID: userID, CompletedSteps: []string{}, MoodLog: []profile.MoodEntry{entry}})
	if err != nil {
		return errs.Invalid("encoding profile: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, doc, updated_at) VALUES ($1, $2, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET doc = jsonb_set(profiles.doc, '{moodLog}', `+storedMoodLog+` || $3::jsonb), updated_at = EXCLUDED.updated_at`,
		userID, string(doc), string(entries), s.now().UTC())
	return storeErr("profiles.append_mood", err)
}
