package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	AccountsFile = "accounts.csv"
	GraphFile    = "graph.gml"
	LogFile      = "crawl.log"
)

// Manager owns the layout of one crawl data directory
type Manager struct {
	dir string
}

// NewManager creates a manager for dir without touching the filesystem
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Dir returns the data directory path
func (m *Manager) Dir() string { return m.dir }

func (m *Manager) AccountsPath() string { return filepath.Join(m.dir, AccountsFile) }
func (m *Manager) GraphPath() string    { return filepath.Join(m.dir, GraphFile) }
func (m *Manager) LogPath() string      { return filepath.Join(m.dir, LogFile) }

// HasState reports whether both persisted stores are present. A directory
// holding only one of them is reported as an error, since resuming from it
// would silently drop half the state.
func (m *Manager) HasState() (bool, error) {
	accounts, err := isFile(m.AccountsPath())
	if err != nil {
		return false, err
	}
	graph, err := isFile(m.GraphPath())
	if err != nil {
		return false, err
	}
	switch {
	case graph && !accounts:
		return false, fmt.Errorf("incomplete state in %s: %s has no %s, likely from a first save that was interrupted; remove %s and start again with a username",
			m.dir, GraphFile, AccountsFile, m.GraphPath())
	case accounts && !graph:
		return false, fmt.Errorf("incomplete state in %s: %s has no %s; restore %s or remove %s to start over",
			m.dir, AccountsFile, GraphFile, GraphFile, m.AccountsPath())
	}
	return accounts, nil
}

// Ensure creates the data directory
func (m *Manager) Ensure() error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Open opens a file inside the data directory for reading
func (m *Manager) Open(name string) (*os.File, error) {
	return os.Open(filepath.Join(m.dir, name))
}

// WriteFile atomically replaces name inside the data directory
func (m *Manager) WriteFile(name string, write func(io.Writer) error) error {
	return WriteAtomic(filepath.Join(m.dir, name), write)
}

// WriteAtomic writes path through a temporary sibling file which is synced
// and renamed into place, so readers observe either the old or the new content.
func WriteAtomic(path string, write func(io.Writer) error) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	if err := write(tempFile); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}
