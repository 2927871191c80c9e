package workflow

import (
	"formflow/internal/step"
)

// Workflow maps a service name to its ordered step list.
type Workflow map[string][]step.Step

// Clone deep-copies a workflow.
func (w Workflow) Clone() Workflow {
	out := make(Workflow, len(w))
	for svc, steps := range w {
		out[svc] = step.CloneSteps(steps)
	}
	return out
}

// Normalize returns a step list that ends in exactly one terminal step.
// An external_browser step supersedes every end_screen; a list with no
// end_screen gets a default one appended. Idempotent, and a pure
// projection: callers re-run it on every read instead of persisting the
// result.
func Normalize(raw []step.Step) []step.Step {
	hasExternal := false
	hasEnd := false
	for _, s := range raw {
		switch s.Type {
		case step.TypeExternalBrowser:
			hasExternal = true
		case step.TypeEndScreen:
			hasEnd = true
		}
	}

	if hasExternal {
		out := make([]step.Step, 0, len(raw))
		var terminal *step.Step
		for _, s := range raw {
			switch s.Type {
			case step.TypeEndScreen:
				// superseded by the external redirect
			case step.TypeExternalBrowser:
				if terminal == nil {
					t := s
					terminal = &t
				}
			default:
				out = append(out, s)
			}
		}
		return append(out, *terminal)
	}

	if !hasEnd {
		return append(step.CloneSteps(raw), step.New(step.TypeEndScreen))
	}

	// Move the end_screen to the tail if non-terminal steps follow it.
	out := make([]step.Step, 0, len(raw))
	var terminal *step.Step
	for _, s := range raw {
		if s.Type == step.TypeEndScreen && terminal == nil {
			t := s
			terminal = &t
			continue
		}
		if s.Type == step.TypeEndScreen {
			continue // duplicate end_screens collapse to the first
		}
		out = append(out, s)
	}
	return append(out, *terminal)
}

// TerminalIndex returns the index of the first terminal step, or -1.
func TerminalIndex(steps []step.Step) int {
	for i, s := range steps {
		if s.IsTerminal() {
			return i
		}
	}
	return -1
}
