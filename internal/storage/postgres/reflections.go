package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
)

// ReflectionStore is a reflection.Store on the reflections table.
type ReflectionStore struct {
	db *sqlx.DB
}

var _ reflection.Store = (*ReflectionStore)(nil)

// NewReflectionStore creates a ReflectionStore.
func NewReflectionStore(db *sqlx.DB) *ReflectionStore {
	return &ReflectionStore{db: db}
}

func (s *ReflectionStore) Create(ctx context.Context, r *reflection.Reflection) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errs.Invalid("reflection id and user id are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reflections (id, user_id, quest_title, quest_type, text, image_url, audio_url, quality_score, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.UserID, r.QuestTitle, r.QuestType, r.Text, r.ImageURL, r.AudioURL, r.QualityScore, r.Kind, r.CreatedAt)
	return storeErr("reflections.create", err)
}

func (s *ReflectionStore) List(ctx context.Context, userID string, limit int) ([]*reflection.Reflection, error) {
	query := `SELECT id, user_id, quest_title, quest_type, text, image_url, audio_url, quality_score, kind, created_at
		FROM reflections WHERE user_id = $1 ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	out := make([]*reflection.Reflection, 0)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, storeErr("reflections.list", err)
	}
	return out, nil
}

func (s *ReflectionStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reflections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return storeErr("reflections.delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("reflections.delete", err)
	}
	if n == 0 {
		return errs.NotFound("reflection", id)
	}
	return nil
}

// CreateStart relies on reflections_one_start_per_day_idx for concurrent
// starts; the NOT EXISTS clause covers submissions made earlier that day.
func (s *ReflectionStore) CreateStart(ctx context.Context, r *reflection.Reflection, from, to time.Time) (bool, error) {
	if r == nil || r.ID == "" || r.UserID == "" {
		return false, errs.Invalid("reflection id and user id are required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reflections (id, user_id, quest_title, quest_type, text, kind, created_at, start_day)
		SELECT $1, $2, $3, $4, $5, 'start', $6::timestamptz, $7::date
		WHERE NOT EXISTS (
			SELECT 1 FROM reflections WHERE user_id = $2 AND quest_title = $3 AND created_at >= $8 AND created_at < $9)
		ON CONFLICT (user_id, quest_title, start_day) WHERE kind = 'start' DO NOTHING`,
		r.ID, r.UserID, r.QuestTitle, r.QuestType, r.Text, r.CreatedAt, from.Format(time.DateOnly), from, to)
	if err != nil {
		return false, storeErr("reflections.create_start", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("reflections.create_start", err)
	}
	return n == 1, nil
}
