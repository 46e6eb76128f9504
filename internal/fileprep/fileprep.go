// Package fileprep prepares incoming files for transmission: type and size
// validation, deterministic file naming from applicant data, best-effort
// compression, and staging to temporary storage.
package fileprep

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// ErrUnsupportedType rejects files outside the accepted MIME types.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrFileTooLarge rejects files over the configured size ceiling.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

var allowedMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/jpg",
	"image/png",
}

var allowedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nameCharsRe  = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	emailCharsRe = regexp.MustCompile(`[^a-zA-Z0-9_@.]`)
)

// ValidateType checks mimeType against the accepted set.
func ValidateType(mimeType string) error {
	if !slices.Contains(allowedMimeTypes, mimeType) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return nil
}

// ValidateSize checks size against maxSize.
func ValidateSize(size, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

// IsImageType reports whether mimeType is one of the accepted image types.
func IsImageType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// Sanitize normalizes free-text input into a file-name-safe token: trimmed,
// internal whitespace collapsed to underscores, and everything outside the
// allow-set stripped. allowAtDot additionally keeps '@' and '.' for emails.
func Sanitize(input string, allowAtDot bool) string {
	if input == "" {
		return ""
	}
	out := whitespaceRe.ReplaceAllString(strings.TrimSpace(input), "_")
	if allowAtDot {
		return emailCharsRe.ReplaceAllString(out, "")
	}
	return nameCharsRe.ReplaceAllString(out, "")
}

// FileExtension extracts the lowercased extension from name, defaulting to
// ".pdf" when absent or unrecognized.
func FileExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(allowedExtensions, ext) {
		return ".pdf"
	}
	return ext
}

// BuildFileName produces the deterministic file name stem for an applicant's
// submission: Name_DNI_Email plus the original file's extension.
func BuildFileName(fullName, dni, email, originalName string) string {
	stem := fmt.Sprintf("%s_%s_%s", Sanitize(fullName, false), Sanitize(dni, false), Sanitize(email, true))
	return stem + FileExtension(originalName)
}
