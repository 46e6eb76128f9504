package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"docudrop-backend/pkg/models"
)

// FileStore persists credentials as a JSON file on local disk, keyed by
// application name. Writes go through a temp file and rename so a crashed
// invocation never leaves a truncated token file behind.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.SugaredLogger
}

func NewFileStore(path string, logger *zap.SugaredLogger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (f *FileStore) ReadCurrent(_ context.Context, appName string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.readAll()
	if err != nil {
		return nil, err
	}
	cred, ok := creds[appName]
	if !ok {
		return nil, ErrNotFound
	}
	out := cred
	return &out, nil
}

func (f *FileStore) Upsert(_ context.Context, appName string, cred *models.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.readAll()
	if err != nil {
		return err
	}
	creds[appName] = *cred

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("creating temp token file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (f *FileStore) readAll() (map[string]models.Credential, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]models.Credential), nil
		}
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	creds := make(map[string]models.Credential)
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt token file is treated as absent; the authorization flow
		// can recreate it.
		f.logger.Warnw("token file is corrupt, treating as empty", "path", f.path, "error", err)
		return make(map[string]models.Credential), nil
	}
	return creds, nil
}
