// Package auth хранит личность поставщика, вошедшего в дашборд
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrNoIdentity возвращается, когда пользователь не вошел
	ErrNoIdentity = errors.New("auth: no authenticated identity")

	// ErrInvalidIdentity возвращается при пустом userId
	ErrInvalidIdentity = errors.New("auth: invalid identity")
)

// Роли пользователей маркетплейса
const (
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// Identity вошедший пользователь
type Identity struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Session текущая сессия
// Личность читается в момент вызова, поэтому повторная попытка после
// входа проходит без пересоздания операций
type Session struct {
	mu       sync.RWMutex
	identity *Identity
}

// NewSession создает пустую сессию
func NewSession() *Session {
	return &Session{}
}

// SignIn запоминает личность (пустая роль - provider)
func (s *Session) SignIn(id Identity) error {
	id.UserID = strings.TrimSpace(id.UserID)
	if id.UserID == "" {
		return ErrInvalidIdentity
	}
	if id.Role == "" {
		id.Role = RoleProvider
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = &id
	return nil
}

// SignOut сбрасывает личность
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
}

// Current возвращает текущую личность или ErrNoIdentity
func (s *Session) Current(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return Identity{}, ErrNoIdentity
	}
	return *s.identity, nil
}
