package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Thnoxs/localy-v1/internal/domain"
	"github.com/Thnoxs/localy-v1/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	profileFileMode = 0o600
	profileDirMode  = 0o700
	tempFilePattern = ".profile-*.toml.tmp"
)

// ProfileRepository keeps the last used upload destination and credit line.
// API credentials are never written here.
type ProfileRepository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.ProfileRepository = (*ProfileRepository)(nil)

func NewProfileRepository(path string) (*ProfileRepository, error) {
	if path == "" {
		return nil, errors.New("profile path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve profile path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &ProfileRepository{path: absPath, mu: lockForPath(absPath)}, nil
}

func (r *ProfileRepository) Get(ctx context.Context) (domain.UploadProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UploadProfile{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, found, err := r.readSchema()
	if err != nil {
		return domain.UploadProfile{}, err
	}
	if !found {
		return domain.UploadProfile{}, domain.ErrProfileNotFound
	}

	return domain.UploadProfile{
		ChatID: file.Upload.ChatID,
		Credit: file.Upload.Credit,
	}, nil
}

func (r *ProfileRepository) Save(ctx context.Context, profile domain.UploadProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, _, err := r.readSchema()
	if err != nil {
		return err
	}

	file.Upload = profileSchema{
		ChatID: profile.ChatID,
		Credit: profile.Credit,
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *ProfileRepository) readSchema() (profileFileSchema, bool, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profileFileSchema{}, false, nil
		}
		return profileFileSchema{}, false, fmt.Errorf("read profile file: %w", err)
	}

	var file profileFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return profileFileSchema{}, false, fmt.Errorf("decode profile file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return profileFileSchema{}, false, err
	}
	file.applyDefaults()

	return file, true, nil
}

func (r *ProfileRepository) writeSchema(file profileFileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), profileDirMode); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode profile file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp profile file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp profile file: %w", err)
	}

	if err := tempFile.Chmod(profileFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp profile file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp profile file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace profile file: %w", err)
	}

	cleanup = false

	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
