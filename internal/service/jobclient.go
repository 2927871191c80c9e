package service

import (
	"time"

	"formflow/internal/jobs"

	"github.com/hibiken/asynq"
)

// JobClient interface for scheduling background jobs
type JobClient interface {
	NotifySubmission(submissionID string) error
	RetryAttachment(attachmentID string, delay time.Duration) error
}

// AsynqJobClient implements JobClient using asynq
type AsynqJobClient struct {
	client *asynq.Client
}

func NewAsynqJobClient(client *asynq.Client) *AsynqJobClient {
	return &AsynqJobClient{client: client}
}

func (c *AsynqJobClient) NotifySubmission(submissionID string) error {
	return jobs.ScheduleSubmissionNotify(c.client, submissionID)
}

func (c *AsynqJobClient) RetryAttachment(attachmentID string, delay time.Duration) error {
	return jobs.ScheduleAttachmentRetry(c.client, attachmentID, delay)
}
