package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
)

// AssignmentStore is a quest.AssignmentStore on the quest_assignments table.
type AssignmentStore struct {
	db *sqlx.DB
}

var _ quest.AssignmentStore = (*AssignmentStore)(nil)

// NewAssignmentStore creates an AssignmentStore.
func NewAssignmentStore(db *sqlx.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func (s *AssignmentStore) Record(ctx context.Context, userID, day, title string) (bool, error) {
	if userID == "" || day == "" {
		return false, errs.Invalid("user id and day are required")
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO quest_assignments (user_id, day, title) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day) DO NOTHING`, userID, day, title)
	if err != nil {
		return false, storeErr("assignments.record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("assignments.record", err)
	}
	return n == 1, nil
}

func (s *AssignmentStore) Release(ctx context.Context, userID, day string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quest_assignments WHERE user_id = $1 AND day = $2`, userID, day)
	return storeErr("assignments.release", err)
}
