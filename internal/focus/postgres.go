package focus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"peka.app/internal/ids"
)

type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

const sessionColumns = "id, user_id, todo_id, started_at, ended_at, planned_seconds, actual_seconds"

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into focus_sessions (id, user_id, todo_id, started_at, ended_at, planned_seconds, actual_seconds)
		values ($1, $2, $3, $4, $5, $6, $7)`,
		sess.ID, sess.UserID, sess.TodoID, sess.StartedAt, sess.EndedAt, sess.PlannedSeconds, sess.ActualSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert focus session: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, userID, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"select "+sessionColumns+" from focus_sessions where id = $1 and user_id = $2",
		id, userID,
	)
	return scanSession(row)
}

func (s *PGStore) List(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"select "+sessionColumns+" from focus_sessions where user_id = $1 order by started_at desc",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, sess *Session) error {
	res, err := s.db.ExecContext(ctx, `
		update focus_sessions
		set ended_at = $1, actual_seconds = $2
		where id = $3 and user_id = $4`,
		sess.EndedAt, sess.ActualSeconds, sess.ID, sess.UserID,
	)
	if err != nil {
		return fmt.Errorf("update focus session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var todoID sql.NullString
	var endedAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.UserID, &todoID, &sess.StartedAt, &endedAt, &sess.PlannedSeconds, &sess.ActualSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan focus session: %w", err)
	}
	if todoID.Valid {
		id := todoID.String
		sess.TodoID = &id
	}
	if endedAt.Valid {
		ended := endedAt.Time
		sess.EndedAt = &ended
	}
	return &sess, nil
}
