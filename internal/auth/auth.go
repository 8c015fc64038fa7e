// Package auth implements local account management over the store.
//
// Credentials are stored and compared in plaintext, mirroring the client this
// replaces. That is a known security flaw, kept deliberately: correct
// server-side authentication is out of scope for a purely local client.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayafuji/melodine/internal/store"
	"github.com/ayafuji/melodine/internal/structures"
)

const sessionKey = "session_user"

var (
	ErrUserExists         = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Manager handles registration, login and the persisted session user.
type Manager struct {
	store store.Store
}

// NewManager creates an auth manager backed by the store.
func NewManager(st store.Store) *Manager {
	return &Manager{store: st}
}

// Register creates a new account and signs it in.
func (m *Manager) Register(username, password string) (*structures.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if _, exists := m.store.GetUserByName(username); exists {
		return nil, ErrUserExists
	}

	user := structures.User{
		ID:        uuid.NewString(),
		Username:  username,
		Password:  password,
		CreatedAt: time.Now(),
	}

	if err := m.store.SaveUser(user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	m.saveSession(user)
	return &user, nil
}

// Login checks credentials and persists the session user.
func (m *Manager) Login(username, password string) (*structures.User, error) {
	user, exists := m.store.GetUserByName(strings.TrimSpace(username))
	if !exists || user.Password != password {
		return nil, ErrInvalidCredentials
	}

	m.saveSession(*user)
	return user, nil
}

// Logout clears the persisted session.
func (m *Manager) Logout() {
	m.store.SetState(sessionKey, "")
}

// CurrentUser returns the persisted session user, if any.
func (m *Manager) CurrentUser() (*structures.User, bool) {
	raw, ok := m.store.GetState(sessionKey)
	if !ok || raw == "" {
		return nil, false
	}

	var user structures.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, false
	}
	return &user, true
}

func (m *Manager) saveSession(user structures.User) {
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	m.store.SetState(sessionKey, string(data))
}
