package userstore

import (
	"context"
	"sync"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/google/uuid"
)

// Memory is an in-process goGuard.UserProvider for tests and the server's
// no-database mode. Its contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]goGuard.UserRecord
	byEmail map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]goGuard.UserRecord),
		byEmail: make(map[string]string),
	}
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (goGuard.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return goGuard.UserRecord{}, goGuard.ErrUserNotFound
	}
	return m.users[id], nil
}

func (m *Memory) GetUserByID(_ context.Context, userID string) (goGuard.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok {
		return goGuard.UserRecord{}, goGuard.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) CreateUser(_ context.Context, in goGuard.CreateUserInput) (goGuard.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalizeEmail(in.Email)
	if _, ok := m.byEmail[email]; ok {
		return goGuard.UserRecord{}, goGuard.ErrAccountExists
	}
	u := goGuard.UserRecord{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
	}
	m.users[u.UserID] = u
	m.byEmail[email] = u.UserID
	return u, nil
}

func (m *Memory) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return goGuard.ErrUserNotFound
	}
	u.PasswordHash = newHash
	m.users[userID] = u
	return nil
}
