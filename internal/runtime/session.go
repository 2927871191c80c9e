package runtime

import (
	"time"

	"formflow/internal/step"
)

// State is the conversation session's lifecycle phase.
type State string

const (
	StateNotStarted       State = "not_started" // awaiting service selection
	StateInProgress       State = "in_progress" // a step is presented, awaiting its answer
	StateCompleted        State = "completed"
	StateRedirected       State = "redirected"
	StateSubmissionFailed State = "submission_failed"
)

// EntryKind tags transcript entries.
type EntryKind string

const (
	EntryQuestion  EntryKind = "question"
	EntryAnswer    EntryKind = "answer"
	EntryCompleted EntryKind = "completed"
	EntryRedirect  EntryKind = "redirect"
)

// Entry is one line of the conversation transcript.
type Entry struct {
	Kind    EntryKind              `json:"kind"`
	StepID  string                 `json:"stepId,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	At      time.Time              `json:"at"`
}

// Answer is one collected answer, keyed by step id in the record.
type Answer struct {
	Question string      `json:"question"`
	Answer   interface{} `json:"answer"`
	Type     step.Type   `json:"type"`
}

// Session is the ephemeral state of one visitor's walk through a
// workflow. It is owned by a single Interpreter and never shared.
type Session struct {
	SelectedService string
	Steps           []step.Step // normalized step list for the selected service
	Cursor          int
	Answers         map[string]Answer
	Transcript      []Entry
	State           State
	StartedAt       time.Time
	Interactions    int
}

func newSession() *Session {
	return &Session{
		State:   StateNotStarted,
		Cursor:  -1,
		Answers: make(map[string]Answer),
	}
}
