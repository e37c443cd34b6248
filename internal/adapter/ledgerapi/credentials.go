package ledgerapi

import (
	"context"
	"sync"
	"time"

	"github.com/iho/dealsync/internal/domain"
)

// StaticCredentials hands out a token supplied by configuration. A token
// refresher elsewhere may rotate it with Set.
type StaticCredentials struct {
	mu   sync.RWMutex
	cred domain.Credential
}

// NewStaticCredentials creates a credential source for a fixed token. A zero
// expiresAt means the token does not expire.
func NewStaticCredentials(token string, expiresAt time.Time) *StaticCredentials {
	return &StaticCredentials{cred: domain.Credential{AccessToken: token, ExpiresAt: expiresAt}}
}

// Credential implements usecase.CredentialSource.
func (s *StaticCredentials) Credential(context.Context) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cred, nil
}

// Set replaces the current credential.
func (s *StaticCredentials) Set(cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
}
