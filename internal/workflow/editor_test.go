package workflow

import (
	"testing"

	"formflow/internal/step"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T, steps ...step.Step) *Editor {
	t.Helper()
	w := Workflow{"consulting": steps}
	return NewEditor(w, PlanProfessional, GateContext{PaymentConfigured: true})
}

func TestAddStep_InsertsBeforeTerminal(t *testing.T) {
	e := newTestEditor(t, step.New(step.TypeText), step.New(step.TypeEndScreen))

	added, d, err := e.AddStep("consulting", step.TypeEmail)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	steps := e.Steps("consulting")
	require.Len(t, steps, 3)
	assert.Equal(t, added.ID, steps[1].ID)
	assert.Equal(t, step.TypeEndScreen, steps[2].Type)
}

func TestAddStep_DeniedDoesNotMutate(t *testing.T) {
	w := Workflow{"consulting": {step.New(step.TypeEndScreen)}}
	e := NewEditor(w, PlanFree, GateContext{})

	_, d, err := e.AddStep("consulting", step.TypeFile)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, DenyPlanUpgradeRequired, d.Reason)
	assert.Len(t, e.Steps("consulting"), 1)
}

func TestAddStep_ExternalBrowserReplacesTerminal(t *testing.T) {
	e := newTestEditor(t, step.New(step.TypeText), step.New(step.TypeEndScreen))

	added, d, err := e.AddStep("consulting", step.TypeExternalBrowser)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	steps := e.Steps("consulting")
	require.Len(t, steps, 2)
	assert.Equal(t, step.TypeText, steps[0].Type)
	assert.Equal(t, added.ID, steps[1].ID)

	// already terminal-correct, so normalization changes nothing
	assert.Equal(t, steps, Normalize(steps))
}

func TestDeleteStep_ExternalBrowserRestoresRetainedEndScreen(t *testing.T) {
	end := step.New(step.TypeEndScreen)
	end.Title = "Custom thanks"
	e := newTestEditor(t, step.New(step.TypeText), end)

	ext, _, err := e.AddStep("consulting", step.TypeExternalBrowser)
	require.NoError(t, err)

	require.NoError(t, e.DeleteStep("consulting", ext.ID))

	steps := e.Steps("consulting")
	require.Len(t, steps, 2)
	assert.Equal(t, step.TypeEndScreen, steps[1].Type)
	assert.Equal(t, "Custom thanks", steps[1].Title)
}

func TestDeleteStep_ExternalBrowserFallsBackToFreshEndScreen(t *testing.T) {
	ext := step.New(step.TypeExternalBrowser)
	e := newTestEditor(t, step.New(step.TypeText), ext)

	require.NoError(t, e.DeleteStep("consulting", ext.ID))

	steps := e.Steps("consulting")
	require.Len(t, steps, 2)
	assert.Equal(t, step.TypeEndScreen, steps[len(steps)-1].Type)
}

func TestDeleteStep_NonTerminal(t *testing.T) {
	text := step.New(step.TypeText)
	e := newTestEditor(t, text, step.New(step.TypeEmail), step.New(step.TypeEndScreen))

	require.NoError(t, e.DeleteStep("consulting", text.ID))

	steps := e.Steps("consulting")
	require.Len(t, steps, 2)
	assert.Equal(t, step.TypeEmail, steps[0].Type)
}

func TestDeleteStep_Missing(t *testing.T) {
	e := newTestEditor(t, step.New(step.TypeEndScreen))
	assert.Error(t, e.DeleteStep("consulting", "nope"))
}

func TestReorderStep_MovesNonTerminal(t *testing.T) {
	a := step.New(step.TypeText)
	b := step.New(step.TypeEmail)
	c := step.New(step.TypeNumber)
	e := newTestEditor(t, a, b, c, step.New(step.TypeEndScreen))

	require.NoError(t, e.ReorderStep("consulting", 0, 2))

	steps := e.Steps("consulting")
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{steps[0].ID, steps[1].ID, steps[2].ID})
	assert.Equal(t, step.TypeEndScreen, steps[3].Type)
}

func TestReorderStep_TerminalIsNoOp(t *testing.T) {
	a := step.New(step.TypeText)
	end := step.New(step.TypeEndScreen)
	e := newTestEditor(t, a, end)

	require.NoError(t, e.ReorderStep("consulting", 1, 0))
	require.NoError(t, e.ReorderStep("consulting", 0, 1))

	steps := e.Steps("consulting")
	assert.Equal(t, a.ID, steps[0].ID)
	assert.Equal(t, end.ID, steps[1].ID)
}

func TestReorderStep_OutOfRange(t *testing.T) {
	e := newTestEditor(t, step.New(step.TypeText), step.New(step.TypeEndScreen))
	assert.Error(t, e.ReorderStep("consulting", 0, 5))
	assert.Error(t, e.ReorderStep("consulting", -1, 0))
}

func TestUpdateStep_PatchesFieldsNotType(t *testing.T) {
	s := step.New(step.TypeText)
	e := newTestEditor(t, s, step.New(step.TypeEndScreen))

	q := "What is your name?"
	ml := true
	require.NoError(t, e.UpdateStep("consulting", s.ID, Patch{Question: &q, Multiline: &ml}))

	steps := e.Steps("consulting")
	assert.Equal(t, q, steps[0].Question)
	assert.True(t, steps[0].Multiline)
	assert.Equal(t, step.TypeText, steps[0].Type)
}

func TestSnapshot_IsolatedFromFurtherEdits(t *testing.T) {
	e := newTestEditor(t, step.New(step.TypeText), step.New(step.TypeEndScreen))

	snap := e.Snapshot()
	_, _, err := e.AddStep("consulting", step.TypeEmail)
	require.NoError(t, err)

	assert.Len(t, snap["consulting"], 2)
	assert.Len(t, e.Steps("consulting"), 3)
}
