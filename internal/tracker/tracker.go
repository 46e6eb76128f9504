// Package tracker keeps a short-term, process-local history of upload attempts
// per client and makes the hourly admission decision. State is confined to one
// process; in a horizontally scaled deployment the limit applies per instance.
package tracker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"docudrop-backend/pkg/models"
)

const (
	// MaxUploadsPerHour is the admission ceiling of successful uploads inside
	// the trailing window.
	MaxUploadsPerHour = 3

	// DefaultHistoryLimit caps GetRecentUploads when the caller passes no limit.
	DefaultHistoryLimit = 10

	admissionWindow = time.Hour
	retentionWindow = 24 * time.Hour
)

// Tracker records upload attempts keyed by client identifier.
type Tracker struct {
	mu      sync.Mutex
	uploads map[string][]models.UploadAttempt
	bypass  bool
	logger  *zap.SugaredLogger
}

// New creates a Tracker. bypass disables admission control entirely and must
// only ever come from an explicit configuration flag.
func New(bypass bool, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		uploads: make(map[string][]models.UploadAttempt),
		bypass:  bypass,
		logger:  logger,
	}
}

// HasExceededLimit reports whether clientID already has MaxUploadsPerHour
// successful uploads inside the trailing admission window.
func (t *Tracker) HasExceededLimit(clientID string) bool {
	if t.bypass {
		t.logger.Debugw("upload limit check bypassed by configuration", "client_id", clientID)
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-admissionWindow)
	var successes int
	for _, attempt := range t.uploads[clientID] {
		if attempt.Status == models.UploadSuccess && attempt.Timestamp.After(cutoff) {
			successes++
		}
	}

	exceeded := successes >= MaxUploadsPerHour
	if exceeded {
		t.logger.Infow("client exceeded upload limit",
			"client_id", clientID,
			"recent_successes", successes,
			"limit", MaxUploadsPerHour,
		)
	}
	return exceeded
}

// AddUpload appends an attempt for clientID, then prunes entries older than
// the retention window for every client, dropping clients left empty.
func (t *Tracker) AddUpload(clientID, fileRef, fileName string, status models.UploadStatus, errorMessage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.uploads[clientID] = append(t.uploads[clientID], models.UploadAttempt{
		ClientID:     clientID,
		Timestamp:    time.Now(),
		FileRef:      fileRef,
		FileName:     fileName,
		Status:       status,
		ErrorMessage: errorMessage,
	})

	t.pruneLocked()
}

// GetRecentUploads returns up to limit attempts for clientID, newest first,
// regardless of status. limit <= 0 applies DefaultHistoryLimit.
func (t *Tracker) GetRecentUploads(clientID string, limit int) []models.UploadAttempt {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	attempts := t.uploads[clientID]
	if len(attempts) == 0 {
		return []models.UploadAttempt{}
	}

	// Attempts are appended in completion order, so newest-first is a
	// reverse walk.
	recent := make([]models.UploadAttempt, 0, min(limit, len(attempts)))
	for i := len(attempts) - 1; i >= 0 && len(recent) < limit; i-- {
		recent = append(recent, attempts[i])
	}
	return recent
}

func (t *Tracker) pruneLocked() {
	cutoff := time.Now().Add(-retentionWindow)
	for clientID, attempts := range t.uploads {
		kept := attempts[:0]
		for _, attempt := range attempts {
			if !attempt.Timestamp.Before(cutoff) {
				kept = append(kept, attempt)
			}
		}
		if len(kept) == 0 {
			delete(t.uploads, clientID)
			continue
		}
		t.uploads[clientID] = kept
	}
}
