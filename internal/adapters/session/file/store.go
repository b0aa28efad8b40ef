package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Thnoxs/localy-v1/internal/ports"
)

// Store answers whether the session marker exists. The marker's contents belong
// to the login process and are never read here.
type Store struct {
	path string
	mu   sync.RWMutex
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(root, marker string) (*Store, error) {
	path, err := markerPath(root, marker)
	if err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Clear deletes the marker. A missing marker is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session marker %q: %w", s.path, err)
	}

	return nil
}

func markerPath(root, marker string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errors.New("install root is empty")
	}

	trimmed := strings.TrimSpace(marker)
	if trimmed == "" {
		return "", errors.New("session marker name is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." || filepath.Base(cleaned) != cleaned {
		return "", fmt.Errorf("invalid session marker name %q", marker)
	}

	return filepath.Join(filepath.Clean(root), cleaned), nil
}
