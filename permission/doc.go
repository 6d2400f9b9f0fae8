// Package permission resolves role-based access control decisions.
//
// # Model
//
// Users hold roles and roles hold permissions named "{resource}.{action}".
// The admin role is authorized for everything. Roles are also ranked by a
// [Hierarchy] (guest < viewer < editor < admin by default) for
// minimum-role checks.
//
// # Failure policy
//
// [Resolver] fails closed: a lookup error denies the request and is logged.
// ListRoles and ListPermissions return an empty, non-nil slice on failure.
//
// # Architecture boundaries
//
// Grants live behind the [Store] interface. [SQLStore] reads them from the
// users_roles, roles, role_permissions and permissions tables; [StaticStore]
// keeps them in memory.
//
// # What this package must NOT do
//
//   - Import goGuard, jwt, or session.
//   - Create or migrate database schema.
package permission
