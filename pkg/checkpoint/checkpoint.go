package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"iggraph/pkg/logger"
	"iggraph/pkg/storage"
)

// LockFile is the name of the run record inside a data directory
const LockFile = ".lock"

// Run statuses
const (
	StatusRunning     = "running"
	StatusFinished    = "finished"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// ErrLocked is returned when another run holds the data directory
var ErrLocked = errors.New("data directory is locked by another run")

// Run describes the crawl currently holding a data directory
type Run struct {
	RunID         string    `json:"run_id"`
	PID           int       `json:"pid"`
	Hostname      string    `json:"hostname,omitempty"`
	SeedUsername  string    `json:"seed_username,omitempty"`
	RetainedRank  int       `json:"retained_rank"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Iterations    int       `json:"iterations"`
	LastCandidate string    `json:"last_candidate,omitempty"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
}

// Manager guards a data directory with a lock file that doubles as a
// progress record for the run holding it
type Manager struct {
	lockPath string
	logger   logger.Logger
	run      *Run
}

// NewManager creates a lock manager for dataDir
func NewManager(dataDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		lockPath: filepath.Join(dataDir, LockFile),
		logger:   log,
	}
}

// Path returns the lock file location
func (m *Manager) Path() string { return m.lockPath }

// Acquire creates the lock file for a new run. If another run holds the
// lock, ErrLocked is returned unless force is set, in which case the stale
// lock is replaced.
func (m *Manager) Acquire(seedUsername string, retainedRank int, force bool) (*Run, error) {
	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	now := time.Now().UTC()
	hostname, _ := os.Hostname()
	run := &Run{
		RunID:        uuid.NewString(),
		PID:          os.Getpid(),
		Hostname:     hostname,
		SeedUsername: seedUsername,
		RetainedRank: retainedRank,
		StartedAt:    now,
		UpdatedAt:    now,
		Status:       StatusRunning,
		Version:      1,
	}

	file, err := os.OpenFile(m.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		held, loadErr := m.Load()
		if !force {
			if loadErr != nil || held == nil {
				return nil, fmt.Errorf("%w: %s", ErrLocked, m.lockPath)
			}
			return nil, fmt.Errorf("%w: run %s (pid %d) started %s", ErrLocked,
				held.RunID, held.PID, held.StartedAt.Format(time.RFC3339))
		}
		fields := map[string]interface{}{"path": m.lockPath}
		if held != nil {
			fields["stale_run_id"] = held.RunID
			fields["stale_pid"] = held.PID
		}
		m.logger.WarnWithFields("Replacing existing lock", fields)
		if err := os.Remove(m.lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		file, err = os.OpenFile(m.lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := encode(file, run); err != nil {
		file.Close()
		os.Remove(m.lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(m.lockPath)
		return nil, fmt.Errorf("failed to close lock file: %w", err)
	}

	m.run = run
	m.logger.InfoWithFields("Lock acquired", map[string]interface{}{
		"run_id": run.RunID,
		"path":   m.lockPath,
	})
	return run, nil
}

// Record saves the progress of the held run
func (m *Manager) Record(iterations int, candidate string) error {
	if m.run == nil {
		return errors.New("lock not held")
	}
	m.run.Iterations = iterations
	m.run.LastCandidate = candidate
	return m.save()
}

// Release removes the lock. The final status is logged with the run totals.
func (m *Manager) Release(status string) error {
	if m.run == nil {
		return nil
	}
	run := m.run
	run.Status = status
	if err := os.Remove(m.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	m.run = nil

	m.logger.InfoWithFields("Lock released", map[string]interface{}{
		"run_id":     run.RunID,
		"status":     status,
		"iterations": run.Iterations,
		"duration":   time.Since(run.StartedAt).Round(time.Second),
	})
	return nil
}

// Load reads the run record currently in the lock file, or nil if unlocked
func (m *Manager) Load() (*Run, error) {
	file, err := os.Open(m.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer file.Close()

	var run Run
	if err := json.NewDecoder(file).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode lock file: %w", err)
	}
	return &run, nil
}

func (m *Manager) save() error {
	m.run.UpdatedAt = time.Now().UTC()
	if err := storage.WriteAtomic(m.lockPath, func(w io.Writer) error {
		return encode(w, m.run)
	}); err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	m.logger.DebugWithFields("Run record saved", map[string]interface{}{
		"run_id":         m.run.RunID,
		"iterations":     m.run.Iterations,
		"last_candidate": m.run.LastCandidate,
	})
	return nil
}

func encode(w io.Writer, run *Run) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(run)
}
