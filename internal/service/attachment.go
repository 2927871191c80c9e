package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"formflow/internal/db"
	"formflow/internal/model"
	"formflow/internal/runtime"
	"formflow/internal/storage"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// AttachmentService is the runtime.AttachmentStore backed by object
// storage and the attachments table.
type AttachmentService struct {
	queries   *db.Queries
	store     storage.Storage
	jobClient JobClient
	log       *zap.Logger
}

func NewAttachmentService(queries *db.Queries, store storage.Storage, log *zap.Logger) *AttachmentService {
	return &AttachmentService{
		queries: queries,
		store:   store,
		log:     log,
	}
}

// SetJobClient sets the job client for scheduling background jobs
func (s *AttachmentService) SetJobClient(client JobClient) {
	s.jobClient = client
}

func (s *AttachmentService) RequestUploadDestination(ctx context.Context, name, contentType string) (runtime.UploadDestination, error) {
	storageID := ulid.Make().String()

	url, err := s.store.PresignPut(ctx, storageID, contentType, 15*time.Minute)
	if err != nil {
		return runtime.UploadDestination{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	return runtime.UploadDestination{URL: url, StorageID: storageID}, nil
}

func (s *AttachmentService) Upload(ctx context.Context, dest runtime.UploadDestination, content io.Reader, size int64) error {
	if err := s.store.Put(ctx, dest.StorageID, content); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}

// CreateAttachment records a file answer against a submission. If the
// bytes are not in storage yet the record is written as FAILED and a
// retry job gets a chance to flip it once the upload lands.
func (s *AttachmentService) CreateAttachment(ctx context.Context, submissionID string, file runtime.FileRef) (string, error) {
	status := model.AttachmentCreated
	if rc, err := s.store.Get(ctx, file.StorageID); err != nil {
		status = model.AttachmentFailed
	} else {
		rc.Close()
	}

	att, err := s.queries.CreateAttachment(ctx, db.CreateAttachmentParams{
		ID:           ulid.Make().String(),
		SubmissionID: submissionID,
		StorageID:    file.StorageID,
		Name:         file.Name,
		Size:         file.Size,
		MimeType:     file.MimeType,
		Status:       string(status),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create attachment record: %w", err)
	}

	if status == model.AttachmentFailed {
		if s.jobClient != nil {
			_ = s.jobClient.RetryAttachment(att.ID, time.Minute)
		}
		return att.ID, fmt.Errorf("stored file missing for %s", file.StorageID)
	}

	return att.ID, nil
}

func (s *AttachmentService) GetAttachment(ctx context.Context, id string) (*model.Attachment, error) {
	att, err := s.queries.GetAttachmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	m := toModelAttachment(att)
	return &m, nil
}

func (s *AttachmentService) ListAttachments(ctx context.Context, submissionID string) ([]model.Attachment, error) {
	atts, err := s.queries.ListAttachmentsBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	out := make([]model.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, toModelAttachment(a))
	}
	return out, nil
}

// DownloadURL returns a presigned read URL for an attachment's bytes.
func (s *AttachmentService) DownloadURL(ctx context.Context, id string) (string, error) {
	att, err := s.queries.GetAttachmentByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get attachment: %w", err)
	}

	url, err := s.store.PresignGet(ctx, att.StorageID, time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return url, nil
}

func toModelAttachment(a db.Attachment) model.Attachment {
	return model.Attachment{
		ID:           a.ID,
		SubmissionID: a.SubmissionID,
		StorageID:    a.StorageID,
		Name:         a.Name,
		Size:         a.Size,
		MimeType:     a.MimeType,
		Status:       model.AttachmentStatus(a.Status),
		CreatedAt:    a.CreatedAt.Format(timeLayout),
	}
}
