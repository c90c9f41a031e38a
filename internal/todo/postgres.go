package todo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"peka.app/internal/ids"
)

// PGStore persists todos in Postgres.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

var _ Store = (*PGStore)(nil)

const todoColumns = "id, user_id, title, description, priority, completed, due_at, created_at, updated_at"

func (s *PGStore) Create(ctx context.Context, t *Todo) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into todos (id, user_id, title, description, priority, completed, due_at, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.UserID, t.Title, t.Description, string(t.Priority), t.Completed, t.DueAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, userID, id string) (*Todo, error) {
	row := s.db.QueryRowContext(ctx,
		"select "+todoColumns+" from todos where id = $1 and user_id = $2",
		id, userID,
	)
	return scanTodo(row)
}

func (s *PGStore) List(ctx context.Context, userID string, f ListFilter) ([]*Todo, error) {
	query := "select " + todoColumns + " from todos where user_id = $1"
	args := []any{userID}
	if f.Completed != nil {
		query += " and completed = $2"
		args = append(args, *f.Completed)
	}
	query += " order by created_at desc"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []*Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, t *Todo) error {
	res, err := s.db.ExecContext(ctx, `
		update todos
		set title = $1, description = $2, priority = $3, completed = $4, due_at = $5, updated_at = $6
		where id = $7 and user_id = $8`,
		t.Title, t.Description, string(t.Priority), t.Completed, t.DueAt, t.UpdatedAt, t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	return checkAffected(res)
}

func (s *PGStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"delete from todos where id = $1 and user_id = $2", id, userID,
	)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return checkAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*Todo, error) {
	var t Todo
	var priority string
	var dueAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &priority, &t.Completed, &dueAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	t.Priority = Priority(priority)
	if dueAt.Valid {
		due := dueAt.Time
		t.DueAt = &due
	}
	return &t, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
