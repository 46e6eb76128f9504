package fileprep

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stager writes prepared files to the local filesystem before upload and
// optionally keeps an archive copy under their final name.
type Stager struct {
	tempDir    string
	archiveDir string
	logger     *zap.SugaredLogger
}

func NewStager(archiveDir string, logger *zap.SugaredLogger) *Stager {
	return &Stager{
		tempDir:    os.TempDir(),
		archiveDir: archiveDir,
		logger:     logger,
	}
}

// Stage writes data to a uniquely named temporary file and returns its path.
// Callers must remove the file with Cleanup once the upload finishes.
func (s *Stager) Stage(data []byte, ext string) (string, error) {
	name := fmt.Sprintf("upload-%s%s", uuid.NewString(), ext)
	path := filepath.Join(s.tempDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to stage file: %w", err)
	}
	return path, nil
}

// Archive copies the staged file into the archive directory under fileName.
// Archival is best-effort: failures are logged and do not block the upload.
func (s *Stager) Archive(tempPath, fileName string) {
	if s.archiveDir == "" {
		return
	}
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		s.logger.Warnw("failed to create archive directory", "dir", s.archiveDir, "error", err)
		return
	}
	data, err := os.ReadFile(tempPath)
	if err != nil {
		s.logger.Warnw("failed to read staged file for archive", "path", tempPath, "error", err)
		return
	}
	dest := filepath.Join(s.archiveDir, fileName)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		s.logger.Warnw("failed to write archive copy", "path", dest, "error", err)
	}
}

// Cleanup removes staged files, logging failures instead of returning them.
func (s *Stager) Cleanup(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warnw("failed to remove staged file", "path", p, "error", err)
		}
	}
}
