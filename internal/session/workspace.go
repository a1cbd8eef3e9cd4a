package session

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace provides the scratch-file capabilities a session needs. It is an
// interface so the state machine can run against fakes in tests.
type Workspace interface {
	// CreateScratchDir creates a uniquely named scratch directory for the
	// given token and returns its path.
	CreateScratchDir(token string) (string, error)
	WriteFile(path, content string) error
	ReadFile(path string) (string, error)
	// Remove deletes a scratch directory recursively.
	Remove(dir string) error
	// Join builds a path inside a scratch directory.
	Join(dir, name string) string
}

// OSWorkspace backs sessions with real directories under Root, or the
// platform temp root when Root is empty.
type OSWorkspace struct {
	Root string
}

func (w OSWorkspace) CreateScratchDir(token string) (string, error) {
	root := w.Root
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "scriptpad-"+token)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return dir, nil
}

func (w OSWorkspace) WriteFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func (w OSWorkspace) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w OSWorkspace) Remove(dir string) error {
	return os.RemoveAll(dir)
}

func (w OSWorkspace) Join(dir, name string) string {
	return filepath.Join(dir, name)
}
