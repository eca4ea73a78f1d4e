// Package directory provides UserDirectory implementations: a Postgres
// adapter for production and an in-memory adapter for tests and local
// development.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	naimatauth "github.com/amnashah110/naimat-auth"
)

const pgUniqueViolation = "23505"

// PostgresDirectory persists accounts in a users table with a unique
// index on email. The unique index is the real duplicate guard: the
// engine's pre-create existence check only narrows the race window.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (naimatauth.User, bool, error) {
	const query = `SELECT id, email, name FROM users WHERE email = $1`

	var user naimatauth.User
	err := d.pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return naimatauth.User{}, false, nil
		}
		return naimatauth.User{}, false, err
	}
	return user, true, nil
}

func (d *PostgresDirectory) Create(ctx context.Context, email string, profile naimatauth.Profile) (naimatauth.User, error) {
	const query = `
		INSERT INTO users (id, email, name, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name`

	var user naimatauth.User
	err := d.pool.QueryRow(ctx, query, uuid.New().String(), email, profile.Name, time.Now().UTC()).
		Scan(&user.ID, &user.Email, &user.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return naimatauth.User{}, naimatauth.ErrIdentityConflict
		}
		return naimatauth.User{}, err
	}
	return user, nil
}
