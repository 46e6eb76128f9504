package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"docudrop-backend/internal/config"
	"docudrop-backend/internal/fileprep"
	"docudrop-backend/internal/providers/dropbox"
	"docudrop-backend/internal/tracker"
	"docudrop-backend/pkg/models"
)

// Service orchestrates the full deposit of a batch of files: naming,
// compression, staging, remote upload, shared-link resolution and attempt
// recording. A batch is all-or-nothing on the way in: the first hard failure
// aborts the remaining files (already-uploaded files stay in Dropbox).
type Service struct {
	cfg        *config.Config
	factory    ClientFactory
	tracker    *tracker.Tracker
	compressor *fileprep.Compressor
	stager     *fileprep.Stager
	logger     *zap.SugaredLogger
}

// NewService creates a new Service instance.
func NewService(
	cfg *config.Config,
	factory ClientFactory,
	tr *tracker.Tracker,
	compressor *fileprep.Compressor,
	stager *fileprep.Stager,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		cfg:        cfg,
		factory:    factory,
		tracker:    tr,
		compressor: compressor,
		stager:     stager,
		logger:     logger,
	}
}

// ValidateFiles checks every file's type and size before any remote work,
// so a malformed batch is rejected without side effects.
func (s *Service) ValidateFiles(files []IncomingFile) error {
	for _, f := range files {
		if err := fileprep.ValidateType(f.MimeType); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := fileprep.ValidateSize(int64(len(f.Data)), s.cfg.MaxFileSize); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// ProcessBatch uploads every file in the batch and returns one UploadedFile
// per success. On a hard failure it records a failed attempt and returns the
// error with no result; files uploaded before the failure are not rolled
// back. On full success a single aggregate success attempt is recorded,
// keyed by the first file's reference.
func (s *Service) ProcessBatch(ctx context.Context, clientID string, sub Submission, files []IncomingFile) ([]models.UploadedFile, error) {
	stem := fmt.Sprintf("%s_%s_%s",
		fileprep.Sanitize(sub.FullName, false),
		fileprep.Sanitize(sub.DNI, false),
		fileprep.Sanitize(sub.Email, true),
	)

	var staged []string
	defer func() { s.stager.Cleanup(staged) }()

	uploaded := make([]models.UploadedFile, 0, len(files))
	for i, f := range files {
		fileName := stem + fileprep.FileExtension(f.Name)
		if len(files) > 1 {
			fileName = fmt.Sprintf("%s_%d%s", stem, i+1, fileprep.FileExtension(f.Name))
		}

		result, tempPath, err := s.processOne(ctx, f, fileName)
		if tempPath != "" {
			staged = append(staged, tempPath)
		}
		if err != nil {
			s.logger.Errorw("upload failed, aborting batch",
				"client_id", clientID,
				"file_name", fileName,
				"uploaded_so_far", len(uploaded),
				"error", err,
			)
			s.recordFailure(clientID, fileName, err)
			return nil, err
		}
		uploaded = append(uploaded, *result)
	}

	first := uploaded[0]
	s.tracker.AddUpload(clientID, first.FileID, first.Name, models.UploadSuccess, "")
	s.logger.Infow("batch uploaded", "client_id", clientID, "files", len(uploaded))

	return uploaded, nil
}

// processOne prepares and uploads a single file under fileName. The returned
// temp path is non-empty whenever staging succeeded, even if a later step
// failed, so the caller can clean it up.
func (s *Service) processOne(ctx context.Context, f IncomingFile, fileName string) (*models.UploadedFile, string, error) {
	data := s.compressor.Process(f.Data, f.MimeType)

	tempPath, err := s.stager.Stage(data, filepath.Ext(fileName))
	if err != nil {
		return nil, "", err
	}
	s.stager.Archive(tempPath, fileName)

	client, err := s.factory.CreateClient(ctx)
	if err != nil {
		return nil, tempPath, err
	}

	src, err := os.Open(tempPath)
	if err != nil {
		return nil, tempPath, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer src.Close()

	remotePath := path.Join(s.cfg.DropboxFolder, fileName)
	meta, err := client.Upload(ctx, remotePath, src)
	if err != nil {
		return nil, tempPath, err
	}

	// Shared-link resolution is best effort; the provider file id still gives
	// the caller a usable reference.
	link, err := client.GetOrCreateSharedLink(ctx, meta.PathLower)
	if err != nil {
		s.logger.Errorw("failed to resolve shared link",
			"path", meta.PathLower, "error", err)
		link = ""
	}

	ref := link
	if ref == "" {
		ref = meta.ID
	}

	return &models.UploadedFile{
		FileID: ref,
		Link:   link,
		Name:   path.Base(meta.PathLower),
	}, tempPath, nil
}

func (s *Service) recordFailure(clientID, fileName string, err error) {
	msg := dropbox.ErrorSummary(err)
	if msg == "" {
		msg = err.Error()
	}
	s.tracker.AddUpload(clientID, "", fileName, models.UploadFailed, msg)
}
