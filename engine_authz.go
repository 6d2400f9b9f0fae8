package goGuard

import (
	"context"

	"github.com/MrEthical07/goGuard/permission"
)

// Can reports whether userID may perform action on resource. The admin role
// is allowed everything. A failed lookup denies unless
// Config.Permission.FailOpen is set.
func (e *Engine) Can(ctx context.Context, userID, resource, action string) bool {
	if e == nil || e.resolver == nil {
		return false
	}
	if e.resolver.Check(ctx, userID, resource, action) {
		return true
	}
	e.metricInc(MetricPermissionDenied)
	return false
}

// HasPermission is Can with a pre-joined "resource.action" name.
func (e *Engine) HasPermission(ctx context.Context, userID, perm string) bool {
	if e == nil || e.resolver == nil {
		return false
	}
	if e.resolver.Has(ctx, userID, perm) {
		return true
	}
	e.metricInc(MetricPermissionDenied)
	return false
}

// HasMinimumRole reports whether the highest role of userID ranks at or
// above minRole.
func (e *Engine) HasMinimumRole(ctx context.Context, userID, minRole string) bool {
	if e == nil || e.resolver == nil {
		return false
	}
	if e.resolver.HasMinimumRole(ctx, userID, minRole) {
		return true
	}
	e.metricInc(MetricPermissionDenied)
	return false
}

// Roles lists the roles of userID, sorted. It is empty on lookup failure.
func (e *Engine) Roles(ctx context.Context, userID string) []string {
	if e == nil || e.resolver == nil {
		return []string{}
	}
	return e.resolver.ListRoles(ctx, userID)
}

// Permissions lists the permissions of userID, sorted. It is empty on lookup
// failure.
func (e *Engine) Permissions(ctx context.Context, userID string) []string {
	if e == nil || e.resolver == nil {
		return []string{}
	}
	return e.resolver.ListPermissions(ctx, userID)
}

// AssignRole grants role to userID when the role store supports writes.
func (e *Engine) AssignRole(ctx context.Context, userID, role string) error {
	if e == nil || e.roleStore == nil {
		return ErrEngineNotReady
	}
	assigner, ok := e.roleStore.(permission.RoleAssigner)
	if !ok {
		return ErrEngineNotReady
	}
	if err := assigner.AssignRole(ctx, userID, role); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventRoleAssigned, true, userID, "", nil, func() map[string]string {
		return map[string]string{"role": role}
	})
	return nil
}
