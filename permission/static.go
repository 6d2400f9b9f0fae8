package permission

import (
	"context"
	"sync"
)

// StaticStore is an in-memory Store, suitable for tests and small fixed
// deployments.
type StaticStore struct {
	mu        sync.RWMutex
	userRoles map[string][]string
	rolePerms map[string][]string
}

// NewStaticStore creates a store with the given role to permission map.
func NewStaticStore(rolePerms map[string][]string) *StaticStore {
	s := &StaticStore{
		userRoles: make(map[string][]string),
		rolePerms: make(map[string][]string, len(rolePerms)),
	}
	for role, perms := range rolePerms {
		s.rolePerms[role] = append([]string(nil), perms...)
	}
	return s
}

// DefineRole adds or replaces the permissions of role.
func (s *StaticStore) DefineRole(role string, perms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolePerms[role] = append([]string(nil), perms...)
}

// AssignRole grants role to userID. Unknown roles are rejected.
func (s *StaticStore) AssignRole(_ context.Context, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rolePerms[role]; !ok {
		return ErrUnknownRole
	}
	for _, r := range s.userRoles[userID] {
		if r == role {
			return nil
		}
	}
	s.userRoles[userID] = append(s.userRoles[userID], role)
	return nil
}

func (s *StaticStore) UserRoles(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.userRoles[userID]...), nil
}

func (s *StaticStore) RolePermissions(_ context.Context, roles []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, r := range roles {
		out = append(out, s.rolePerms[r]...)
	}
	return out, nil
}
