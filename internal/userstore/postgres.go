package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres implements goGuard.UserProvider over the table
//
//	users(id uuid primary key, email text unique, password_hash text, role text)
//
// Emails are stored lowercased.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps db, which is expected to use the pgx stdlib driver.
func NewPostgres(db *sql.DB) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (goGuard.UserRecord, error) {
	const op = "userstore.postgres.GetUserByEmail"
	const q = `
SELECT id, email, password_hash, role
FROM users
WHERE email = $1`
	return p.scanOne(ctx, op, q, normalizeEmail(email))
}

func (p *Postgres) GetUserByID(ctx context.Context, userID string) (goGuard.UserRecord, error) {
	const op = "userstore.postgres.GetUserByID"
	if _, err := uuid.Parse(userID); err != nil {
		return goGuard.UserRecord{}, fmt.Errorf("%s: %w", op, goGuard.ErrUserNotFound)
	}
	const q = `
SELECT id, email, password_hash, role
FROM users
WHERE id = $1`
	return p.scanOne(ctx, op, q, userID)
}

func (p *Postgres) CreateUser(ctx context.Context, in goGuard.CreateUserInput) (goGuard.UserRecord, error) {
	const op = "userstore.postgres.CreateUser"
	const q = `
INSERT INTO users (id, email, password_hash, role)
VALUES ($1, $2, $3, $4)`

	u := goGuard.UserRecord{
		UserID:       uuid.NewString(),
		Email:        normalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	if _, err := p.db.ExecContext(ctx, q, u.UserID, u.Email, u.PasswordHash, u.Role); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return goGuard.UserRecord{}, fmt.Errorf("%s: %w", op, goGuard.ErrAccountExists)
		}
		return goGuard.UserRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	const op = "userstore.postgres.UpdatePasswordHash"
	const q = `UPDATE users SET password_hash = $2 WHERE id = $1`

	res, err := p.db.ExecContext(ctx, q, userID, newHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, goGuard.ErrUserNotFound)
	}
	return nil
}

func (p *Postgres) scanOne(ctx context.Context, op, q string, arg any) (goGuard.UserRecord, error) {
	var u goGuard.UserRecord
	err := p.db.QueryRowContext(ctx, q, arg).Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goGuard.UserRecord{}, fmt.Errorf("%s: %w", op, goGuard.ErrUserNotFound)
		}
		return goGuard.UserRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
