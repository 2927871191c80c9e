package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"formflow/internal/db"
	"formflow/internal/model"
	"formflow/internal/schema"
	"formflow/internal/workflow"

	"github.com/oklog/ulid/v2"
)

type FormService struct {
	queries    *db.Queries
	schemaComp *schema.Compiler
	plans      *PlanService
	bus        EventBus
}

type EventBus interface {
	PublishOrg(orgID string, event map[string]interface{}) error
	PublishForm(formID string, event map[string]interface{}) error
}

func NewFormService(queries *db.Queries, schemaComp *schema.Compiler, plans *PlanService, bus EventBus) *FormService {
	return &FormService{
		queries:    queries,
		schemaComp: schemaComp,
		plans:      plans,
		bus:        bus,
	}
}

// DefinitionError reports the first step a definition save was refused
// for, with the gate's structured reason.
type DefinitionError struct {
	Service string
	StepID  string
	Reason  workflow.DenyReason
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("step %s in service %q rejected: %s", e.StepID, e.Service, e.Reason)
}

type CreateFormInput struct {
	OrgID      string            `json:"orgId"`
	Name       string            `json:"name"`
	Slug       string            `json:"slug"`
	Definition workflow.Workflow `json:"definition"`
}

func (s *FormService) CreateForm(ctx context.Context, input CreateFormInput) (*model.Form, error) {
	if input.Definition == nil {
		input.Definition = workflow.Workflow{}
	}

	if err := s.validateDefinition(ctx, input.OrgID, input.Definition); err != nil {
		return nil, err
	}

	definition, err := json.Marshal(input.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition: %w", err)
	}

	formID := ulid.Make().String()

	form, err := s.queries.CreateForm(ctx, db.CreateFormParams{
		ID:         formID,
		OrgID:      input.OrgID,
		Name:       input.Name,
		Slug:       input.Slug,
		Services:   serviceNames(input.Definition),
		Definition: definition,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	_ = s.bus.PublishOrg(input.OrgID, map[string]interface{}{
		"type":   "form.created",
		"formId": formID,
	})

	m := toModelForm(form)
	return &m, nil
}

func (s *FormService) GetForm(ctx context.Context, id string) (*model.Form, error) {
	form, err := s.queries.GetFormByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}
	m := toModelForm(form)
	return &m, nil
}

func (s *FormService) ListForms(ctx context.Context, orgID string) ([]model.Form, error) {
	forms, err := s.queries.ListFormsByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}

	out := make([]model.Form, 0, len(forms))
	for _, f := range forms {
		out = append(out, toModelForm(f))
	}
	return out, nil
}

// GetDefinition returns the stored definition with every service's step
// list normalized. Normalization happens on read; the stored document is
// whatever the author last saved.
func (s *FormService) GetDefinition(ctx context.Context, formID string) (workflow.Workflow, error) {
	form, err := s.queries.GetFormByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("failed to get form: %w", err)
	}

	var wf workflow.Workflow
	if len(form.Definition) > 0 {
		if err := json.Unmarshal(form.Definition, &wf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
		}
	}
	if wf == nil {
		wf = workflow.Workflow{}
	}

	out := make(workflow.Workflow, len(wf))
	for svc, steps := range wf {
		out[svc] = workflow.Normalize(steps)
	}
	return out, nil
}

// SaveDefinition validates and persists a definition. The step gate runs
// again here regardless of what the authoring editor decided; the editor
// outcome is advisory only.
func (s *FormService) SaveDefinition(ctx context.Context, formID string, wf workflow.Workflow) error {
	form, err := s.queries.GetFormByID(ctx, formID)
	if err != nil {
		return fmt.Errorf("failed to get form: %w", err)
	}

	if err := s.validateDefinition(ctx, form.OrgID, wf); err != nil {
		return err
	}

	definition, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	if err := s.queries.UpdateFormDefinition(ctx, formID, serviceNames(wf), definition); err != nil {
		return fmt.Errorf("failed to update definition: %w", err)
	}

	_ = s.bus.PublishForm(formID, map[string]interface{}{
		"type":   "form.updated",
		"formId": formID,
	})
	_ = s.bus.PublishOrg(form.OrgID, map[string]interface{}{
		"type":   "form.updated",
		"formId": formID,
	})

	return nil
}

func (s *FormService) SetPublished(ctx context.Context, formID string, published bool) error {
	form, err := s.queries.GetFormByID(ctx, formID)
	if err != nil {
		return fmt.Errorf("failed to get form: %w", err)
	}

	if err := s.queries.SetFormPublished(ctx, formID, published); err != nil {
		return fmt.Errorf("failed to set published: %w", err)
	}

	_ = s.bus.PublishOrg(form.OrgID, map[string]interface{}{
		"type":      "form.published",
		"formId":    formID,
		"published": published,
	})

	return nil
}

// validateDefinition checks the document shape, rejects duplicate step
// ids, then replays the insertion gate over every step with the steps
// before it as context.
func (s *FormService) validateDefinition(ctx context.Context, orgID string, wf workflow.Workflow) error {
	if err := s.schemaComp.Validate(ctx, schema.DefinitionSchema(), wf); err != nil {
		return fmt.Errorf("invalid definition: %w", err)
	}

	// Answers are keyed by step id, so a duplicate id within a service
	// would silently drop all but the last answer.
	for svc, steps := range wf {
		seen := make(map[string]bool, len(steps))
		for _, st := range steps {
			if seen[st.ID] {
				return &DefinitionError{Service: svc, StepID: st.ID, Reason: workflow.DenyDuplicateStepID}
			}
			seen[st.ID] = true
		}
	}

	plan, paymentConfigured, err := s.plans.Gate(ctx, orgID)
	if err != nil {
		return err
	}

	for svc, steps := range wf {
		for i, st := range steps {
			decision := workflow.CanInsert(st.Type, plan, workflow.GateContext{
				PaymentConfigured: paymentConfigured,
				Existing:          steps[:i],
			})
			if !decision.Allowed {
				return &DefinitionError{Service: svc, StepID: st.ID, Reason: decision.Reason}
			}
		}
	}
	return nil
}

func serviceNames(wf workflow.Workflow) []string {
	names := make([]string, 0, len(wf))
	for svc := range wf {
		names = append(names, svc)
	}
	sort.Strings(names)
	return names
}

func toModelForm(f db.Form) model.Form {
	return model.Form{
		ID:         f.ID,
		OrgID:      f.OrgID,
		Name:       f.Name,
		Slug:       f.Slug,
		Services:   f.Services,
		Definition: f.Definition,
		Published:  f.Published,
		CreatedAt:  f.CreatedAt.Format(timeLayout),
		UpdatedAt:  f.UpdatedAt.Format(timeLayout),
	}
}
