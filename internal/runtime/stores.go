package runtime

import (
	"context"
	"io"
)

// FileRef is the stored reference a file answer resolves to.
type FileRef struct {
	StorageID string `json:"storageId"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType"`
}

// UploadDestination is where file bytes go before the reference is kept.
type UploadDestination struct {
	URL       string `json:"url"`
	StorageID string `json:"storageId"`
}

// FileUpload is the visitor-side input for a file step.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// SubmissionStore persists the finished submission payload.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, payload map[string]interface{}) (string, error)
}

// AttachmentStore handles the file round trip: destination, transfer,
// and the per-submission attachment record.
type AttachmentStore interface {
	RequestUploadDestination(ctx context.Context, name, contentType string) (UploadDestination, error)
	Upload(ctx context.Context, dest UploadDestination, content io.Reader, size int64) error
	CreateAttachment(ctx context.Context, submissionID string, file FileRef) (string, error)
}
