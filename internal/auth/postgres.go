package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"peka.app/internal/ids"
)

const pgUniqueViolation = "23505"

var _ UserStore = (*PGUserStore)(nil)

// PGUserStore implements UserStore using PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

const userColumns = `id, email, name, coalesce(password_hash, ''), disabled, created_at, updated_at`

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`,
		normalizeEmail(email),
	)
	return scanUser(row)
}

func (s *PGUserStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = normalizeEmail(u.Email)
	var hash any
	if u.PasswordHash != "" {
		hash = u.PasswordHash
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash, disabled)
		 values($1, $2, $3, $4, $5)
		 returning created_at, updated_at`,
		u.ID, u.Email, u.Name, hash, u.Disabled,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PGUserStore) UpsertOAuth(ctx context.Context, email, name string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash, disabled)
		 values($1, $2, $3, null, false)
		 on conflict (email) do update
		   set name = excluded.name, updated_at = now()
		 returning `+userColumns,
		ids.New(), normalizeEmail(email), name,
	)
	return scanUser(row)
}

func (s *PGUserStore) SetDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set disabled = $2, updated_at = now() where id = $1`,
		id, disabled,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Disabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
