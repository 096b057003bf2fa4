package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Artifact store — a per-run directory tree under a root resolved once at
// process start. The engine writes artifacts here; the API layer serves them
// as static files.
// ---------------------------------------------------------------------------

type Store struct {
	root string
}

// New resolves the artifact root and creates it if missing. The root is
// immutable for the process lifetime.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the resolved artifact root directory.
func (s *Store) Root() string {
	return s.root
}

// RunDir returns (and creates) the artifact directory for one run.
func (s *Store) RunDir(runID uuid.UUID) (string, error) {
	dir := filepath.Join(s.root, runID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run dir: %w", err)
	}
	return dir, nil
}

// ArtifactPath returns the full path for a named artifact file of a run.
func (s *Store) ArtifactPath(runID uuid.UUID, filename string) string {
	return filepath.Join(s.root, runID.String(), filename)
}

// Write stores data at the given artifact path, creating parent directories.
func (s *Store) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}

// Relative converts an absolute artifact path into the path component served
// by the API layer (relative to the root, forward slashes).
func (s *Store) Relative(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "/")
}
