package workflow

import (
	"testing"

	"formflow/internal/step"

	"github.com/stretchr/testify/assert"
)

func TestCanInsert_AdvancedStepsNeedPaidPlan(t *testing.T) {
	d := CanInsert(step.TypeFile, PlanFree, GateContext{})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyPlanUpgradeRequired, d.Reason)

	d = CanInsert(step.TypeMultipleChoice, PlanFree, GateContext{})
	assert.False(t, d.Allowed)

	d = CanInsert(step.TypeFile, PlanProfessional, GateContext{})
	assert.True(t, d.Allowed)
}

func TestCanInsert_PaymentNeedsProvider(t *testing.T) {
	d := CanInsert(step.TypePayment, PlanBusiness, GateContext{PaymentConfigured: false})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyPaymentNotConfigured, d.Reason)

	d = CanInsert(step.TypePayment, PlanBusiness, GateContext{PaymentConfigured: true})
	assert.True(t, d.Allowed)
}

func TestCanInsert_DuplicateExternalBrowser(t *testing.T) {
	existing := []step.Step{step.New(step.TypeText), step.New(step.TypeExternalBrowser)}

	d := CanInsert(step.TypeExternalBrowser, PlanProfessional, GateContext{Existing: existing})
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyDuplicateTerminal, d.Reason)

	d = CanInsert(step.TypeExternalBrowser, PlanProfessional, GateContext{})
	assert.True(t, d.Allowed)
}

func TestCanInsert_BasicStepsAlwaysAllowed(t *testing.T) {
	for _, typ := range []step.Type{step.TypeText, step.TypeEmail, step.TypePhone, step.TypeNumber, step.TypeDate} {
		d := CanInsert(typ, PlanFree, GateContext{})
		assert.True(t, d.Allowed, "type %s", typ)
	}
}
