package validation

import (
	"fmt"
	"io"
	"net/http"
	"slices"

	"site-entry/config"
	apperrors "site-entry/pkg/errors"
)

// ValidateFile checks size and sniffed MIME type against the named upload
// context and returns the detected type. file is rewound before returning.
func ValidateFile(size int64, file io.ReadSeeker, contextName string) (string, error) {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return "", fmt.Errorf("unknown upload context %q", contextName)
	}

	if rules.MaxSizeMB > 0 && size > rules.MaxSizeMB*1024*1024 {
		return "", apperrors.NewInvalidInputError("file size %.2f MB exceeds the %d MB limit", float64(size)/1024/1024, rules.MaxSizeMB)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file header: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind file: %w", err)
	}

	mimeType := http.DetectContentType(buffer[:n])
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return "", apperrors.NewInvalidInputError("file type %s is not allowed", mimeType)
	}
	return mimeType, nil
}
