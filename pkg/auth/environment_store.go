package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvSessionID = "IGGRAPH_SESSION_ID"
	EnvCSRFToken = "IGGRAPH_CSRF_TOKEN"
	EnvUserAgent = "IGGRAPH_USER_AGENT"
)

// EnvironmentStore is a read-only store over IGGRAPH_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment credentials under any requested name
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	sessionID := os.Getenv(EnvSessionID)
	csrfToken := os.Getenv(EnvCSRFToken)
	if sessionID == "" || csrfToken == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "environment"
	}
	return &Credentials{
		Name:      name,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: os.Getenv(EnvUserAgent),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return nil, nil
	}
	// Zero LastModified so stored copies take precedence
	creds.LastModified = time.Time{}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}
