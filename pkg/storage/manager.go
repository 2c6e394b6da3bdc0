package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Manager owns the scratch directory where collected documents and generated
// reports live between pipeline stages.
type Manager struct {
	scratchDir string
	files      map[string]bool
	mu         sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(scratchDir string) (*Manager, error) {
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Manager{
		scratchDir: scratchDir,
		files:      make(map[string]bool),
	}, nil
}

// NewToken returns a random token used to keep scratch names unique
func NewToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// SanitizeUsername maps anything outside Reddit's username alphabet to '_'
func SanitizeUsername(username string) string {
	if username == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, username)
}

// DataPath returns the path for a collected document
func (m *Manager) DataPath(username, token string) string {
	return filepath.Join(m.scratchDir, fmt.Sprintf("%s_%s_reddit_full_data.md", SanitizeUsername(username), token))
}

// ReportPath returns the path for a generated report
func (m *Manager) ReportPath(username, token string) string {
	return filepath.Join(m.scratchDir, fmt.Sprintf("response_output_%s_%s.md", SanitizeUsername(username), token))
}

// WriteData stores a collected document and returns its path
func (m *Manager) WriteData(username, token, document string) (string, error) {
	path := m.DataPath(username, token)
	return path, m.save(strings.NewReader(document), path)
}

// WriteReport stores a generated report and returns its path
func (m *Manager) WriteReport(username, token, report string) (string, error) {
	path := m.ReportPath(username, token)
	return path, m.save(strings.NewReader(report), path)
}

// save writes r to path through a temporary file and an atomic rename
func (m *Manager) save(r io.Reader, path string) error {
	tempFile := path + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write scratch data: %w", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.files[path] = true
	m.mu.Unlock()

	return nil
}

// Exists reports whether path is present on disk
func (m *Manager) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Open opens a stored file for reading
func (m *Manager) Open(path string) (*os.File, error) {
	return os.Open(path)
}

// Remove deletes a scratch file. Removing a missing file is not an error.
func (m *Manager) Remove(path string) error {
	m.mu.Lock()
	delete(m.files, path)
	m.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Cleanup removes every file this manager wrote that is still on disk
func (m *Manager) Cleanup() error {
	m.mu.RLock()
	paths := make([]string, 0, len(m.files))
	for path := range m.files {
		paths = append(paths, path)
	}
	m.mu.RUnlock()

	var errs []error
	for _, path := range paths {
		if err := m.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetScratchDir returns the scratch directory path
func (m *Manager) GetScratchDir() string {
	return m.scratchDir
}

// TrackedCount returns the number of files written and not yet removed
func (m *Manager) TrackedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
