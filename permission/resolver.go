package permission

import (
	"context"
	"log/slog"
	"slices"
)

// Options configures a Resolver.
type Options struct {
	Hierarchy *Hierarchy
	AdminRole string
	// FailOpen grants access when the store fails. It exists for policy
	// auditability and should stay false.
	FailOpen bool
	Logger   *slog.Logger
}

// Resolver answers authorization questions against a Store.
type Resolver struct {
	store     Store
	hierarchy *Hierarchy
	adminRole string
	failOpen  bool
	logger    *slog.Logger
}

// NewResolver creates a resolver over store.
func NewResolver(store Store, opts Options) *Resolver {
	if opts.Hierarchy == nil {
		opts.Hierarchy = DefaultHierarchy()
	}
	if opts.AdminRole == "" {
		opts.AdminRole = RoleAdmin
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		store:     store,
		hierarchy: opts.Hierarchy,
		adminRole: roleKey(opts.AdminRole),
		failOpen:  opts.FailOpen,
		logger:    opts.Logger,
	}
}

// Hierarchy returns the role ranking in use.
func (r *Resolver) Hierarchy() *Hierarchy {
	return r.hierarchy
}

// FailOpen reports the configured failure policy.
func (r *Resolver) FailOpen() bool {
	return r.failOpen
}

// Name joins resource and action into a permission name.
func Name(resource, action string) string {
	return resource + "." + action
}

// Check reports whether userID may perform action on resource.
func (r *Resolver) Check(ctx context.Context, userID, resource, action string) bool {
	return r.Has(ctx, userID, Name(resource, action))
}

// Has reports whether userID holds the named permission or the admin role.
// Role and permission names compare case-insensitively.
func (r *Resolver) Has(ctx context.Context, userID, perm string) bool {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		return r.onError(ctx, "user_roles", userID, err)
	}
	if slices.ContainsFunc(roles, func(role string) bool { return roleKey(role) == r.adminRole }) {
		return true
	}
	if len(roles) == 0 {
		return false
	}

	perms, err := r.store.RolePermissions(ctx, roles)
	if err != nil {
		return r.onError(ctx, "role_permissions", userID, err)
	}
	return slices.Contains(normalize(perms), roleKey(perm))
}

// ListRoles returns the sorted, de-duplicated roles of userID. It never
// returns nil.
func (r *Resolver) ListRoles(ctx context.Context, userID string) []string {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		r.onError(ctx, "user_roles", userID, err)
		return []string{}
	}
	return normalize(roles)
}

// ListPermissions returns the sorted, de-duplicated permissions granted to
// userID through its roles. It never returns nil.
func (r *Resolver) ListPermissions(ctx context.Context, userID string) []string {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		r.onError(ctx, "user_roles", userID, err)
		return []string{}
	}
	if len(roles) == 0 {
		return []string{}
	}
	perms, err := r.store.RolePermissions(ctx, roles)
	if err != nil {
		r.onError(ctx, "role_permissions", userID, err)
		return []string{}
	}
	return normalize(perms)
}

// HighestRole returns the best-ranked role of userID, or "" if the user has
// no ranked role or the lookup failed.
func (r *Resolver) HighestRole(ctx context.Context, userID string) string {
	return r.hierarchy.Highest(r.ListRoles(ctx, userID))
}

// HasMinimumRole reports whether the user's highest role ranks at or above
// minRole.
func (r *Resolver) HasMinimumRole(ctx context.Context, userID, minRole string) bool {
	roles, err := r.store.UserRoles(ctx, userID)
	if err != nil {
		return r.onError(ctx, "user_roles", userID, err)
	}
	return r.hierarchy.AtLeast(r.hierarchy.Highest(roles), minRole)
}

func (r *Resolver) onError(ctx context.Context, op, userID string, err error) bool {
	r.logger.ErrorContext(ctx, "permission lookup failed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.Bool("fail_open", r.failOpen),
		slog.Any("error", err),
	)
	return r.failOpen
}

// normalize lower-cases, sorts and de-duplicates names, dropping blanks.
func normalize(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = roleKey(n); n != "" {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
