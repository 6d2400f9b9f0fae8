package goGuard

import (
	"context"
	"io"
	"log/slog"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/session"
)

// UserProvider is the interface callers implement to connect goGuard to
// their user database.
//
// GetUserByEmail and GetUserByID return ErrUserNotFound for unknown users.
// CreateUser returns ErrAccountExists when the email is taken.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// UserRecord is the account record returned by [UserProvider].
type UserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Role         string
}

// CreateUserInput is passed to [UserProvider.CreateUser]. PasswordHash is
// already hashed.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Role         string
}

// RegisterRequest is the input of [Engine.Register]. An empty Role selects
// Config.Account.DefaultRole. Role is granted as given, so only trusted
// callers (seeding, admin tooling) may set it; public sign-up must leave it
// empty.
type RegisterRequest struct {
	Email    string
	Password string
	Role     string
}

// TokenPair is an issued access/refresh pair with expiry instants.
type TokenPair = session.TokenPair

// AuthResult is returned by Login and Register.
type AuthResult struct {
	UserID string
	Email  string
	Role   string

	// Tokens is nil for Register without AutoLogin.
	Tokens *TokenPair
}

// Identity is the verified subject of an access token.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// AuditEvent is the structured audit record.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes events as structured log records.
type SlogSink = internalaudit.SlogSink

// NewChannelSink creates a sink with the given channel buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a sink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink creates a sink logging through logger, or slog.Default when
// logger is nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
