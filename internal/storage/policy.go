package storage

import (
	"fmt"
	"mime"
	"strings"
)

// Constraints are the upload limits a file step imposes.
type Constraints struct {
	AcceptedTypes []string `json:"acceptedTypes,omitempty"`
	MaxSize       int64    `json:"maxSize,omitempty"` // bytes, 0 = unlimited
}

// Validate checks an upload candidate against the constraints.
func (c Constraints) Validate(fileName, contentType string, sizeBytes int64) error {
	if c.MaxSize > 0 && sizeBytes > c.MaxSize {
		return fmt.Errorf("file size %d bytes exceeds maximum %d bytes", sizeBytes, c.MaxSize)
	}

	if len(c.AcceptedTypes) > 0 && !c.matchesMimeType(contentType) {
		return fmt.Errorf("content type %s is not allowed. Allowed types: %v", contentType, c.AcceptedTypes)
	}

	return nil
}

// matchesMimeType checks contentType against accepted patterns,
// including wildcards like "image/*".
func (c Constraints) matchesMimeType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	for _, allowed := range c.AcceptedTypes {
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "/*")
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
		} else if mediaType == allowed {
			return true
		}
	}
	return false
}
