package permission

import (
	"context"
	"errors"
)

// ErrUnknownRole is returned when assigning a role that does not exist.
var ErrUnknownRole = errors.New("permission: unknown role")

// Store reads role and permission grants.
type Store interface {
	UserRoles(ctx context.Context, userID string) ([]string, error)
	RolePermissions(ctx context.Context, roles []string) ([]string, error)
}

// RoleAssigner is implemented by stores that can grant a role to a user.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, role string) error
}
