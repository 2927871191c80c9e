package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"formflow/internal/db"
	"formflow/internal/model"
	"formflow/internal/pubsub"
	"formflow/internal/storage"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the asynq client surface the schedule helpers need.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// purgeInterval is how often the bot-submission sweep recurs.
const purgeInterval = 24 * time.Hour

type JobServer struct {
	server *asynq.Server
	client *asynq.Client
	db     *db.Pool
	bus    *pubsub.Bus
	store  storage.Storage
	log    *zap.Logger
}

func NewJobServer(redisAddr string, dbPool *db.Pool, bus *pubsub.Bus, store storage.Storage, log *zap.Logger) (*JobServer, *asynq.Client) {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	client := asynq.NewClient(redisOpt)

	return &JobServer{
		server: server,
		client: client,
		db:     dbPool,
		bus:    bus,
		store:  store,
		log:    log,
	}, client
}

func (js *JobServer) Start() error {
	mux := asynq.NewServeMux()

	mux.HandleFunc("submission:notify", js.handleSubmissionNotify)
	mux.HandleFunc("attachment:retry", js.handleAttachmentRetry)
	mux.HandleFunc("submission:purgebot", js.handlePurgeBotSubmissions)

	return js.server.Start(mux)
}

func (js *JobServer) Stop() {
	js.server.Shutdown()
	js.client.Close()
}

// Job handlers

func (js *JobServer) handleSubmissionNotify(ctx context.Context, t *asynq.Task) error {
	submissionID := string(t.Payload())

	sub, err := js.db.Queries.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission: %w", err)
	}

	form, err := js.db.Queries.GetFormByID(ctx, sub.FormID)
	if err != nil {
		return fmt.Errorf("failed to get form: %w", err)
	}

	_ = js.bus.PublishOrg(form.OrgID, map[string]interface{}{
		"type":         "submission.received",
		"submissionId": submissionID,
		"formId":       sub.FormID,
		"service":      sub.Service,
		"isBot":        sub.IsBot,
	})

	js.log.Info("Submission notification sent",
		zap.String("submission_id", submissionID),
		zap.String("form_id", sub.FormID))
	return nil
}

func (js *JobServer) handleAttachmentRetry(ctx context.Context, t *asynq.Task) error {
	attachmentID := string(t.Payload())

	att, err := js.db.Queries.GetAttachmentByID(ctx, attachmentID)
	if err != nil {
		return fmt.Errorf("failed to get attachment: %w", err)
	}

	// Only retry failed records
	if att.Status != string(model.AttachmentFailed) {
		return nil
	}

	// The bytes are already in storage; the record just never flipped
	if !storedObjectExists(ctx, js.store, att.StorageID) {
		return fmt.Errorf("stored file missing for attachment %s", attachmentID)
	}

	if err := js.db.Queries.UpdateAttachmentStatus(ctx, attachmentID, string(model.AttachmentCreated)); err != nil {
		return fmt.Errorf("failed to update attachment status: %w", err)
	}

	js.log.Info("Attachment recovered", zap.String("attachment_id", attachmentID))
	return nil
}

func (js *JobServer) handlePurgeBotSubmissions(ctx context.Context, t *asynq.Task) error {
	cutoff := time.Now().AddDate(0, 0, -30)

	deleted, err := js.db.Queries.DeleteBotSubmissionsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge bot submissions: %w", err)
	}

	js.log.Info("Purged bot submissions", zap.Int64("deleted", deleted))

	// Each run enqueues the next; the sweep keeps recurring for the
	// life of the deployment.
	if err := ScheduleBotPurge(js.client, purgeInterval); err != nil {
		js.log.Warn("Failed to reschedule bot purge", zap.Error(err))
	}
	return nil
}

// storedObjectExists checks storage for an object without keeping the
// handle open.
func storedObjectExists(ctx context.Context, store storage.Storage, storageID string) bool {
	rc, err := store.Get(ctx, storageID)
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

// Schedule jobs

func ScheduleSubmissionNotify(client Enqueuer, submissionID string) error {
	task := asynq.NewTask("submission:notify", []byte(submissionID))
	_, err := client.Enqueue(task, asynq.Queue("critical"))
	return err
}

func ScheduleAttachmentRetry(client Enqueuer, attachmentID string, delay time.Duration) error {
	task := asynq.NewTask("attachment:retry", []byte(attachmentID))
	_, err := client.Enqueue(task, asynq.ProcessIn(delay), asynq.MaxRetry(5))
	return err
}

// ScheduleBotPurge enqueues the next sweep. The fixed task id keeps a
// restarting process from stacking parallel sweep chains.
func ScheduleBotPurge(client Enqueuer, interval time.Duration) error {
	task := asynq.NewTask("submission:purgebot", nil)
	_, err := client.Enqueue(task, asynq.ProcessIn(interval), asynq.Queue("low"), asynq.TaskID("submission:purgebot"))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}
