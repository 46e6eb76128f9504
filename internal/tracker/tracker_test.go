package tracker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docudrop-backend/pkg/models"
)

func newTracker(bypass bool) *Tracker {
	return New(bypass, zap.NewNop().Sugar())
}

// backdate rewrites the timestamp of the attempt at index idx for clientID.
func backdate(t *testing.T, tr *Tracker, clientID string, idx int, age time.Duration) {
	t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Less(t, idx, len(tr.uploads[clientID]))
	tr.uploads[clientID][idx].Timestamp = time.Now().Add(-age)
}

func TestHasExceededLimit_ThreeSuccessesBlockFourth(t *testing.T) {
	tr := newTracker(false)

	for i := 0; i < MaxUploadsPerHour-1; i++ {
		tr.AddUpload("1.2.3.4", "ref", "file.pdf", models.UploadSuccess, "")
		assert.False(t, tr.HasExceededLimit("1.2.3.4"))
	}

	tr.AddUpload("1.2.3.4", "ref", "file.pdf", models.UploadSuccess, "")
	assert.True(t, tr.HasExceededLimit("1.2.3.4"))
}

func TestHasExceededLimit_FailuresDoNotCount(t *testing.T) {
	tr := newTracker(false)

	for i := 0; i < 10; i++ {
		tr.AddUpload("1.2.3.4", "", "file.pdf", models.UploadFailed, "boom")
	}
	assert.False(t, tr.HasExceededLimit("1.2.3.4"))
}

func TestHasExceededLimit_AgedSuccessExcluded(t *testing.T) {
	tr := newTracker(false)

	for i := 0; i < MaxUploadsPerHour; i++ {
		tr.AddUpload("1.2.3.4", "ref", "file.pdf", models.UploadSuccess, "")
	}
	require.True(t, tr.HasExceededLimit("1.2.3.4"))

	// One success slides out of the 60-minute window.
	backdate(t, tr, "1.2.3.4", 0, 61*time.Minute)
	assert.False(t, tr.HasExceededLimit("1.2.3.4"))
}

func TestHasExceededLimit_Bypass(t *testing.T) {
	tr := newTracker(true)

	for i := 0; i < 10; i++ {
		tr.AddUpload("1.2.3.4", "ref", "file.pdf", models.UploadSuccess, "")
	}
	assert.False(t, tr.HasExceededLimit("1.2.3.4"))
}

func TestHasExceededLimit_PerClientIsolation(t *testing.T) {
	tr := newTracker(false)

	for i := 0; i < MaxUploadsPerHour; i++ {
		tr.AddUpload("1.2.3.4", "ref", "file.pdf", models.UploadSuccess, "")
	}
	assert.True(t, tr.HasExceededLimit("1.2.3.4"))
	assert.False(t, tr.HasExceededLimit("5.6.7.8"))
}

func TestAddUpload_PrunesEntriesOlderThanRetention(t *testing.T) {
	tr := newTracker(false)

	tr.AddUpload("1.2.3.4", "old-ref", "old.pdf", models.UploadSuccess, "")
	backdate(t, tr, "1.2.3.4", 0, 25*time.Hour)

	// Any subsequent AddUpload, for any client, triggers the prune.
	tr.AddUpload("5.6.7.8", "ref", "new.pdf", models.UploadSuccess, "")

	recent := tr.GetRecentUploads("1.2.3.4", 10)
	assert.Empty(t, recent)

	tr.mu.Lock()
	_, exists := tr.uploads["1.2.3.4"]
	tr.mu.Unlock()
	assert.False(t, exists, "client with no remaining attempts must be removed from the map")
}

func TestGetRecentUploads_NewestFirstAndLimited(t *testing.T) {
	tr := newTracker(false)

	for i := 0; i < 15; i++ {
		tr.AddUpload("1.2.3.4", fmt.Sprintf("ref-%d", i), "file.pdf", models.UploadSuccess, "")
	}

	recent := tr.GetRecentUploads("1.2.3.4", 0)
	require.Len(t, recent, DefaultHistoryLimit)
	assert.Equal(t, "ref-14", recent[0].FileRef)
	assert.Equal(t, "ref-5", recent[len(recent)-1].FileRef)

	three := tr.GetRecentUploads("1.2.3.4", 3)
	require.Len(t, three, 3)
	assert.Equal(t, "ref-14", three[0].FileRef)
}

func TestGetRecentUploads_IncludesFailures(t *testing.T) {
	tr := newTracker(false)

	tr.AddUpload("1.2.3.4", "ref", "ok.pdf", models.UploadSuccess, "")
	tr.AddUpload("1.2.3.4", "", "bad.pdf", models.UploadFailed, "limit exceeded")

	recent := tr.GetRecentUploads("1.2.3.4", 10)
	require.Len(t, recent, 2)
	assert.Equal(t, models.UploadFailed, recent[0].Status)
	assert.Equal(t, "limit exceeded", recent[0].ErrorMessage)
}

func TestGetRecentUploads_UnknownClient(t *testing.T) {
	tr := newTracker(false)
	assert.Empty(t, tr.GetRecentUploads("unknown", 10))
}
