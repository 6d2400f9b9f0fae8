package permission

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// SQLStore reads grants from a Postgres schema:
//
//	users_roles(user_id, role_id)
//	roles(id, name)
//	role_permissions(role_id, permission_id)
//	permissions(id, name)
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps db. Schema creation is the caller's concern.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) UserRoles(ctx context.Context, userID string) ([]string, error) {
	const q = `
SELECT r.name
FROM users_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	return scanNames(rows)
}

func (s *SQLStore) RolePermissions(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	const q = `
SELECT DISTINCT p.name
FROM roles r
JOIN role_permissions rp ON rp.role_id = r.id
JOIN permissions p ON p.id = rp.permission_id
WHERE r.name = ANY($1)`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(roles))
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	return scanNames(rows)
}

// AssignRole grants the named role to userID. Granting a role twice is a
// no-op.
func (s *SQLStore) AssignRole(ctx context.Context, userID, role string) error {
	const q = `
INSERT INTO users_roles (user_id, role_id)
SELECT $1, r.id FROM roles r WHERE r.name = $2
ON CONFLICT DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, userID, role)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists); err != nil {
			return fmt.Errorf("check role: %w", err)
		}
		if !exists {
			return ErrUnknownRole
		}
	}
	return nil
}

func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return out, nil
}
