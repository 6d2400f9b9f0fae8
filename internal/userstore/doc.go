// Package userstore provides goGuard.UserProvider implementations used by
// the server binary: Postgres over database/sql and an in-memory map.
package userstore
