package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blogbuild/blogbuild/internal/logfields"
)

// Manager handles a scratch workspace directory
type Manager struct {
	baseDir string
	tempDir string
}

// NewManager creates a new workspace manager rooted at baseDir (os.TempDir when empty)
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create creates a uniquely named workspace directory
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace base directory: %w", err)
	}
	tempDir, err := os.MkdirTemp(m.baseDir, "blogbuild-")
	if err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Debug("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.tempDir
}

// WriteFile writes data to name inside the workspace and returns its path.
func (m *Manager) WriteFile(name string, data []byte) (string, error) {
	if m.tempDir == "" {
		return "", fmt.Errorf("workspace not created")
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("workspace file name must be local: %s", name)
	}

	path := filepath.Join(m.tempDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write workspace file: %w", err)
	}
	return path, nil
}

// Cleanup removes the workspace directory
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}

	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Debug("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}
