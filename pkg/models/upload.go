package models

import "time"

// UploadStatus is the terminal outcome of a single upload attempt.
type UploadStatus string

const (
	UploadSuccess UploadStatus = "success"
	UploadFailed  UploadStatus = "failed"
)

// UploadAttempt is one record of an upload outcome, scoped to a client identifier.
// Only success records count toward the hourly admission limit.
type UploadAttempt struct {
	ClientID     string       `json:"clientId"`
	Timestamp    time.Time    `json:"timestamp"`
	FileRef      string       `json:"fileRef"`
	FileName     string       `json:"fileName"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// UploadedFile describes one file successfully written to the remote provider.
// FileID always holds a usable reference: the shared link when one could be
// resolved, otherwise the provider's file id.
type UploadedFile struct {
	FileID string `json:"fileId"`
	Link   string `json:"link,omitempty"`
	Name   string `json:"name"`
}
