package workflow

import (
	"fmt"

	"formflow/internal/step"
)

// Editor owns one workflow during an authoring session. Mutations are
// synchronous and single-writer; Snapshot hands the current state off
// by value so readers never observe a partial edit.
type Editor struct {
	plan     Plan
	gateCtx  GateContext
	workflow Workflow
	// end_screens displaced by an external_browser step, kept so the
	// original exit can be restored if the redirect is deleted.
	retired map[string]step.Step
}

// NewEditor starts an authoring session over a copy of the workflow.
func NewEditor(w Workflow, plan Plan, gateCtx GateContext) *Editor {
	if w == nil {
		w = make(Workflow)
	}
	return &Editor{
		plan:     plan,
		gateCtx:  gateCtx,
		workflow: w.Clone(),
		retired:  make(map[string]step.Step),
	}
}

// Snapshot returns a deep copy of the current workflow.
func (e *Editor) Snapshot() Workflow {
	return e.workflow.Clone()
}

// Steps returns a copy of one service's step list.
func (e *Editor) Steps(service string) []step.Step {
	return step.CloneSteps(e.workflow[service])
}

// AddStep gates the template type and inserts a fresh step. Terminal
// external_browser steps replace the existing terminal tail; all other
// steps land immediately before the terminal step.
func (e *Editor) AddStep(service string, template step.Type) (step.Step, Decision, error) {
	steps := e.workflow[service]

	gateCtx := e.gateCtx
	gateCtx.Existing = steps
	decision := CanInsert(template, e.plan, gateCtx)
	if !decision.Allowed {
		return step.Step{}, decision, nil
	}

	fresh := step.New(template)

	if template == step.TypeExternalBrowser {
		kept := make([]step.Step, 0, len(steps))
		for _, s := range steps {
			if s.IsTerminal() {
				if s.Type == step.TypeEndScreen {
					e.retired[service] = s
				}
				continue
			}
			kept = append(kept, s)
		}
		e.workflow[service] = append(kept, fresh)
		return fresh, decision, nil
	}

	ti := TerminalIndex(steps)
	if ti < 0 {
		e.workflow[service] = append(steps, fresh)
		return fresh, decision, nil
	}
	out := make([]step.Step, 0, len(steps)+1)
	out = append(out, steps[:ti]...)
	out = append(out, fresh)
	out = append(out, steps[ti:]...)
	e.workflow[service] = out
	return fresh, decision, nil
}

// Patch carries field updates for UpdateStep. Nil fields are left
// untouched; the step type itself is never patched.
type Patch struct {
	Question      *string
	Placeholder   *string
	Multiline     *bool
	MinLength     *int
	MaxLength     *int
	Required      *bool
	Min           *float64
	Max           *float64
	MinDate       *string
	MaxDate       *string
	AcceptedTypes []string
	MaxSize       *int64
	Options       []step.Option
	Multiple      *bool
	PaymentType   *step.PaymentKind
	Amount        *float64
	Currency      *string
	LinkedStepID  *string
	Description   *string
	URL           *string
	ButtonText    *string
	Title         *string
	Message       *string
	ShowConfetti  *bool
	AnimationType *string
}

// UpdateStep applies a structural patch to one step.
func (e *Editor) UpdateStep(service, stepID string, p Patch) error {
	steps := e.workflow[service]
	for i := range steps {
		if steps[i].ID != stepID {
			continue
		}
		applyPatch(&steps[i], p)
		return nil
	}
	return fmt.Errorf("step %s not found in service %q", stepID, service)
}

func applyPatch(s *step.Step, p Patch) {
	if p.Question != nil {
		s.Question = *p.Question
	}
	if p.Placeholder != nil {
		s.Placeholder = *p.Placeholder
	}
	if p.Multiline != nil {
		s.Multiline = *p.Multiline
	}
	if p.MinLength != nil {
		s.MinLength = p.MinLength
	}
	if p.MaxLength != nil {
		s.MaxLength = p.MaxLength
	}
	if p.Required != nil {
		s.Required = *p.Required
	}
	if p.Min != nil {
		s.Min = p.Min
	}
	if p.Max != nil {
		s.Max = p.Max
	}
	if p.MinDate != nil {
		s.MinDate = *p.MinDate
	}
	if p.MaxDate != nil {
		s.MaxDate = *p.MaxDate
	}
	if p.AcceptedTypes != nil {
		s.AcceptedTypes = append([]string(nil), p.AcceptedTypes...)
	}
	if p.MaxSize != nil {
		s.MaxSize = *p.MaxSize
	}
	if p.Options != nil {
		s.Options = append([]step.Option(nil), p.Options...)
	}
	if p.Multiple != nil {
		s.Multiple = *p.Multiple
	}
	if p.PaymentType != nil {
		s.PaymentType = *p.PaymentType
	}
	if p.Amount != nil {
		s.Amount = *p.Amount
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.LinkedStepID != nil {
		s.LinkedStepID = *p.LinkedStepID
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.ButtonText != nil {
		s.ButtonText = *p.ButtonText
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Message != nil {
		s.Message = *p.Message
	}
	if p.ShowConfetti != nil {
		s.ShowConfetti = *p.ShowConfetti
	}
	if p.AnimationType != nil {
		s.AnimationType = *p.AnimationType
	}
}

// DeleteStep removes a step. Deleting the external_browser terminal
// restores an end_screen, reusing the one it displaced when available,
// so the flow never loses its exit.
func (e *Editor) DeleteStep(service, stepID string) error {
	steps := e.workflow[service]
	idx := -1
	for i, s := range steps {
		if s.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("step %s not found in service %q", stepID, service)
	}

	removed := steps[idx]
	out := append(steps[:idx:idx], steps[idx+1:]...)

	if removed.Type == step.TypeExternalBrowser {
		if kept, ok := e.retired[service]; ok {
			out = append(out, kept)
			delete(e.retired, service)
		} else {
			out = append(out, step.New(step.TypeEndScreen))
		}
	}

	e.workflow[service] = out
	return nil
}

// ReorderStep moves a step from one index to another. Moves touching
// the terminal step are a no-op.
func (e *Editor) ReorderStep(service string, from, to int) error {
	steps := e.workflow[service]
	if from < 0 || from >= len(steps) || to < 0 || to >= len(steps) {
		return fmt.Errorf("reorder out of range: %d -> %d (len %d)", from, to, len(steps))
	}
	if steps[from].IsTerminal() || steps[to].IsTerminal() {
		return nil
	}
	if from == to {
		return nil
	}

	moved := steps[from]
	out := append(steps[:from:from], steps[from+1:]...)
	out = append(out[:to:to], append([]step.Step{moved}, out[to:]...)...)
	e.workflow[service] = out
	return nil
}
