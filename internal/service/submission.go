package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"formflow/internal/db"
	"formflow/internal/model"
	"formflow/internal/runtime"
	"formflow/internal/workflow"

	"github.com/oklog/ulid/v2"
)

const timeLayout = time.RFC3339

// ErrRateLimited means the org's free tier ran out of submissions for
// the current month.
var ErrRateLimited = errors.New("monthly submission limit reached")

// freeMonthlyLimit is how many submissions a free org may take per
// calendar month.
const freeMonthlyLimit = 100

type SubmissionService struct {
	queries   *db.Queries
	bus       EventBus
	jobClient JobClient
}

func NewSubmissionService(queries *db.Queries, bus EventBus) *SubmissionService {
	return &SubmissionService{
		queries: queries,
		bus:     bus,
	}
}

// SetJobClient sets the job client for scheduling background jobs
func (s *SubmissionService) SetJobClient(client JobClient) {
	s.jobClient = client
}

// CreateSubmission persists a finished conversation's payload. The
// payload arrives in interpreter shape: a "service" key, a "meta" key
// with the bot verdict, and one entry per answered step.
func (s *SubmissionService) CreateSubmission(ctx context.Context, formID string, payload map[string]interface{}) (*model.Submission, error) {
	form, err := s.queries.GetFormByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}

	org, err := s.queries.GetOrgByID(ctx, form.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get org: %w", err)
	}

	if workflow.Plan(org.Plan) == workflow.PlanFree {
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		count, err := s.queries.CountSubmissionsSince(ctx, org.ID, monthStart)
		if err != nil {
			return nil, fmt.Errorf("failed to count submissions: %w", err)
		}
		if count >= freeMonthlyLimit {
			return nil, ErrRateLimited
		}
	}

	service, _ := payload["service"].(string)
	botScore := 0.0
	isBot := false
	if meta, ok := payload["meta"].(map[string]interface{}); ok {
		botScore, _ = meta["botScore"].(float64)
		isBot, _ = meta["isBot"].(bool)
	}

	answers := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == "service" || k == "meta" {
			continue
		}
		answers[k] = v
	}

	submissionID := ulid.Make().String()

	sub, err := s.queries.CreateSubmission(ctx, db.CreateSubmissionParams{
		ID:       submissionID,
		FormID:   formID,
		Service:  service,
		Payload:  answers,
		BotScore: botScore,
		IsBot:    isBot,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	_ = s.bus.PublishForm(formID, map[string]interface{}{
		"type":         "submission.created",
		"submissionId": submissionID,
		"service":      service,
	})
	_ = s.bus.PublishOrg(form.OrgID, map[string]interface{}{
		"type":         "submission.created",
		"submissionId": submissionID,
		"formId":       formID,
		"service":      service,
	})

	if s.jobClient != nil {
		_ = s.jobClient.NotifySubmission(submissionID)
	}

	m := toModelSubmission(sub)
	return &m, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	sub, err := s.queries.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	m := toModelSubmission(sub)
	return &m, nil
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, formID string, limit, offset int) ([]model.Submission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	subs, err := s.queries.ListSubmissionsByForm(ctx, formID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	out := make([]model.Submission, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toModelSubmission(sub))
	}
	return out, nil
}

// StoreFor binds the service to one form as the interpreter-facing
// submission store.
func (s *SubmissionService) StoreFor(formID string) runtime.SubmissionStore {
	return &submissionStoreAdapter{svc: s, formID: formID}
}

type submissionStoreAdapter struct {
	svc    *SubmissionService
	formID string
}

func (a *submissionStoreAdapter) CreateSubmission(ctx context.Context, payload map[string]interface{}) (string, error) {
	sub, err := a.svc.CreateSubmission(ctx, a.formID, payload)
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func toModelSubmission(s db.Submission) model.Submission {
	return model.Submission{
		ID:        s.ID,
		FormID:    s.FormID,
		Service:   s.Service,
		Payload:   s.Payload,
		BotScore:  s.BotScore,
		IsBot:     s.IsBot,
		CreatedAt: s.CreatedAt.Format(timeLayout),
	}
}
