package upload

import "docudrop-backend/pkg/models"

// Submission carries the applicant fields attached to an upload request.
type Submission struct {
	FullName string
	DNI      string
	Email    string
}

// IncomingFile is one file extracted from the multipart request, fully read
// into memory.
type IncomingFile struct {
	Name     string
	MimeType string
	Data     []byte
}

// Response is the JSON body returned by the upload endpoint for both success
// and failure outcomes.
type Response struct {
	Success       bool                   `json:"success"`
	Message       string                 `json:"message"`
	Files         []models.UploadedFile  `json:"files,omitempty"`
	RecentUploads []models.UploadAttempt `json:"recentUploads"`
}
