package service

import (
	"context"
	"testing"

	"formflow/internal/schema"
	"formflow/internal/step"
	"formflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventBus implements EventBus for testing
type MockEventBus struct {
	events []map[string]interface{}
}

func (m *MockEventBus) PublishOrg(orgID string, event map[string]interface{}) error {
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventBus) PublishForm(formID string, event map[string]interface{}) error {
	m.events = append(m.events, event)
	return nil
}

func TestServiceNames_Sorted(t *testing.T) {
	wf := workflow.Workflow{
		"web design":  {step.New(step.TypeText)},
		"consulting":  {step.New(step.TypeText)},
		"maintenance": {step.New(step.TypeText)},
	}

	assert.Equal(t, []string{"consulting", "maintenance", "web design"}, serviceNames(wf))
	assert.Empty(t, serviceNames(workflow.Workflow{}))
}

func TestDefinitionError_Message(t *testing.T) {
	err := &DefinitionError{
		Service: "consulting",
		StepID:  "step-1",
		Reason:  workflow.DenyPlanUpgradeRequired,
	}
	assert.Contains(t, err.Error(), "step-1")
	assert.Contains(t, err.Error(), "consulting")
	assert.Contains(t, err.Error(), "plan-upgrade-required")
}

// A client that bypasses the editor must not be able to persist two
// steps sharing an id: answers are keyed by step id, so the later
// answer would silently overwrite the earlier one.
func TestFormService_RejectsDuplicateStepID(t *testing.T) {
	svc := NewFormService(nil, schema.NewCompilerWithCache(8), NewPlanService(nil), &MockEventBus{})

	first := step.New(step.TypeText)
	second := step.New(step.TypeText)
	second.ID = first.ID

	wf := workflow.Workflow{
		"consulting": {first, second, step.New(step.TypeEndScreen)},
	}

	err := svc.validateDefinition(context.Background(), "org-1", wf)
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, workflow.DenyDuplicateStepID, defErr.Reason)
	assert.Equal(t, "consulting", defErr.Service)
	assert.Equal(t, first.ID, defErr.StepID)
}

func TestFormService_CreateForm(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestFormService_SaveDefinition(t *testing.T) {
	t.Skip("Requires test database setup")
}

func TestSubmissionService_RateLimit(t *testing.T) {
	t.Skip("Requires test database setup")
}
