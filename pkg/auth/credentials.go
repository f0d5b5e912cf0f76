package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"iggraph/pkg/config"
)

// Credentials are the session cookies of one upstream login
type Credentials struct {
	Name         string    `json:"name"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	Store(creds *Credentials) error
	Retrieve(name string) (*Credentials, error)
	List() ([]*Credentials, error)
	Delete(name string) error
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager tries each store in order: the system keyring, an encrypted
// file, then the environment
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager whose encrypted file lives in configDir.
// An empty configDir uses DefaultConfigDir.
func NewManager(configDir string) (*Manager, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		configDir = dir
	}

	var stores []CredentialStore
	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials in the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.Name == "" {
		return errors.New("name is required")
	}
	if creds.SessionID == "" {
		return errors.New("session ID is required")
	}
	if creds.CSRFToken == "" {
		return errors.New("CSRF token is required")
	}
	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Credentials, error) {
	for _, store := range m.stores {
		if creds, err := store.Retrieve(name); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrCredentialsNotFound, name)
}

// RetrieveDefault returns the most recently modified credentials
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrCredentialsNotFound
	}
	latest := all[0]
	for _, c := range all[1:] {
		if c.LastModified.After(latest.LastModified) {
			latest = c
		}
	}
	return latest, nil
}

// List returns the credentials of every store, sorted by name. When several
// stores hold the same name the most recent copy wins.
func (m *Manager) List() ([]*Credentials, error) {
	byName := make(map[string]*Credentials)
	for _, store := range m.stores {
		list, err := store.List()
		if err != nil {
			continue
		}
		for _, c := range list {
			if existing, ok := byName[c.Name]; !ok || c.LastModified.After(existing.LastModified) {
				byName[c.Name] = c
			}
		}
	}

	result := make([]*Credentials, 0, len(byName))
	for _, c := range byName {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes credentials from every store holding them
func (m *Manager) Delete(name string) error {
	deleted := false
	var lastErr error
	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}
	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for %s", ErrCredentialsNotFound, name)
}

// Apply fills the session settings of cfg that are still empty
func (c *Credentials) Apply(cfg *config.InstagramConfig) {
	if cfg.SessionID == "" {
		cfg.SessionID = c.SessionID
	}
	if cfg.CSRFToken == "" {
		cfg.CSRFToken = c.CSRFToken
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = c.UserAgent
	}
}

// Masked returns a copy with the secrets masked for display
func (c *Credentials) Masked() *Credentials {
	return &Credentials{
		Name:         c.Name,
		SessionID:    maskString(c.SessionID),
		CSRFToken:    maskString(c.CSRFToken),
		UserAgent:    c.UserAgent,
		LastModified: c.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// DefaultConfigDir returns the per-user configuration directory, creating it
func DefaultConfigDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "iggraph")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "iggraph")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "iggraph")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "iggraph")
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
