package domain

import "time"

// Credential is the upstream access credential handed to the engine.
type Credential struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Check returns a precondition error when the credential cannot be used at now.
// A zero ExpiresAt means the token does not expire.
func (c Credential) Check(now time.Time) error {
	if c.AccessToken == "" {
		return ErrCredentialMissing
	}

	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return ErrCredentialExpired
	}

	return nil
}
