package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCredential_Check(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred Credential
		want error
	}{
		{"missing token", Credential{}, ErrCredentialMissing},
		{"expired", Credential{AccessToken: "t", ExpiresAt: now}, ErrCredentialExpired},
		{"valid", Credential{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}, nil},
		{"no expiry", Credential{AccessToken: "t"}, nil},
	}

	for _, tt := range tests {
		if err := tt.cred.Check(now); !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}
