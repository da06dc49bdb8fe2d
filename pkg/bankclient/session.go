package bankclient

import (
	"sync"

	"github.com/Vashist1110/AVS-Bank/shared/auth"
)

// Session holds the bearer token of the signed-in caller. It is safe for
// concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	role  auth.Role
}

func (s *Session) Set(token string, role auth.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.role = role
}

func (s *Session) Clear() {
	s.Set("", "")
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Role() auth.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.role == auth.RoleAdmin
}
