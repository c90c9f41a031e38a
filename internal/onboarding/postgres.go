package onboarding

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGStore keeps one row per user with the answer set as jsonb.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

func (s *PGStore) Save(ctx context.Context, userID string, answers []Answer, updatedAt time.Time) error {
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into user_preferences (user_id, preferences, updated_at)
		values ($1, $2, $3)
		on conflict (user_id) do update
		set preferences = excluded.preferences, updated_at = excluded.updated_at`,
		userID, data, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, userID string) ([]Answer, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"select preferences from user_preferences where user_id = $1", userID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	var answers []Answer
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return answers, nil
}
