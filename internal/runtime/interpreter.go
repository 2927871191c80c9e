package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"formflow/internal/bot"
	"formflow/internal/step"
	"formflow/internal/storage"
	"formflow/internal/workflow"

	"go.uber.org/zap"
)

var (
	ErrAlreadyStarted    = errors.New("a service is already selected")
	ErrUnknownService    = errors.New("unknown service")
	ErrNoQuestionPending = errors.New("no question is awaiting an answer")
	ErrSessionReset      = errors.New("session was reset")
)

// Config wires an Interpreter to its collaborators. Workflow is read
// only; the interpreter never mutates the source definition.
type Config struct {
	Workflow    workflow.Workflow
	Submissions SubmissionStore
	Attachments AttachmentStore
	Scorer      bot.Scorer
	Pacer       Pacer
	Log         *zap.Logger

	// OnEntry fires after each transcript append; OnTyping fires when
	// the pacing delay starts. Both are optional and replace any
	// ambient UI hook.
	OnEntry  func(Entry)
	OnTyping func()
}

// Interpreter walks one visitor through a workflow: it presents steps,
// coerces answers, keeps the transcript, and assembles the submission
// when a terminal step is reached. One interpreter per visitor session.
type Interpreter struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	session    *Session
	generation int
	sessionCtx context.Context
	cancel     context.CancelFunc

	submissionID string
}

func NewInterpreter(cfg Config) *Interpreter {
	if cfg.Pacer == nil {
		cfg.Pacer = NewTypingPacer()
	}
	if cfg.Scorer == nil {
		cfg.Scorer = bot.NewTimingScorer()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	i := &Interpreter{cfg: cfg, log: cfg.Log}
	i.initSession()
	return i
}

func (i *Interpreter) initSession() {
	if i.cancel != nil {
		i.cancel()
	}
	i.sessionCtx, i.cancel = context.WithCancel(context.Background())
	i.session = newSession()
	i.generation++
	i.submissionID = ""
}

// Services lists the selectable services in stable order.
func (i *Interpreter) Services() []string {
	names := make([]string, 0, len(i.cfg.Workflow))
	for name := range i.cfg.Workflow {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Session returns the live session. Callers must treat it as read-only.
func (i *Interpreter) Session() *Session {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.session
}

// SubmissionID returns the created submission id once the session
// reached a terminal state.
func (i *Interpreter) SubmissionID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.submissionID
}

// Reset returns the session to service selection from any state,
// clearing answers and transcript. An in-flight typing delay is
// interrupted.
func (i *Interpreter) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.initSession()
}

// SelectService starts the conversation for one service.
func (i *Interpreter) SelectService(ctx context.Context, name string) error {
	i.mu.Lock()
	sess := i.session
	gen := i.generation
	if sess.State != StateNotStarted {
		i.mu.Unlock()
		return ErrAlreadyStarted
	}
	raw, ok := i.cfg.Workflow[name]
	if !ok {
		i.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownService, name)
	}

	sess.SelectedService = name
	sess.Steps = workflow.Normalize(raw)
	sess.StartedAt = time.Now()
	sess.State = StateInProgress
	i.appendEntry(sess, Entry{Kind: EntryAnswer, Text: name, At: time.Now()})
	i.mu.Unlock()

	return i.advance(ctx, gen)
}

// Answer supplies the visitor's input for the currently presented step.
// A *ValidationError leaves the cursor in place so the same step is
// re-asked; any other error is an I/O failure that is safe to retry.
func (i *Interpreter) Answer(ctx context.Context, value interface{}) error {
	i.mu.Lock()
	sess := i.session
	gen := i.generation
	if sess.State != StateInProgress || sess.Cursor < 0 || sess.Cursor >= len(sess.Steps) {
		i.mu.Unlock()
		return ErrNoQuestionPending
	}
	s := sess.Steps[sess.Cursor]
	sess.Interactions++

	var answer interface{}
	var err error
	if s.Type == step.TypeFile {
		answer, err = i.uploadFile(ctx, s, value)
	} else {
		answer, err = coerce(s, value)
		if err == nil && s.Type == step.TypePayment {
			answer = i.resolvePaymentAmount(sess, s, answer)
		}
	}
	if err != nil {
		i.mu.Unlock()
		return err
	}

	sess.Answers[s.ID] = Answer{
		Question: s.Question,
		Answer:   answer,
		Type:     s.Type,
	}
	i.appendEntry(sess, Entry{
		Kind:   EntryAnswer,
		StepID: s.ID,
		Text:   answerText(s, answer),
		At:     time.Now(),
	})
	i.mu.Unlock()

	return i.advance(ctx, gen)
}

// Retry re-runs submission assembly after a failed attempt. The session
// made no forward progress, so this is safe to call repeatedly.
func (i *Interpreter) Retry(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.session.State != StateSubmissionFailed {
		return fmt.Errorf("nothing to retry in state %s", i.session.State)
	}
	i.session.State = StateInProgress
	return i.finish(ctx, i.session)
}

// advance runs the typing delay, then presents the next step or, when
// the next step is terminal (or the list is exhausted), assembles the
// submission instead of asking it as a question.
func (i *Interpreter) advance(ctx context.Context, gen int) error {
	if err := i.pace(ctx, gen); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.generation != gen {
		return ErrSessionReset
	}
	sess := i.session
	sess.Cursor++

	if sess.Cursor >= len(sess.Steps) || sess.Steps[sess.Cursor].IsTerminal() {
		return i.finish(ctx, sess)
	}

	next := sess.Steps[sess.Cursor]
	i.appendEntry(sess, Entry{
		Kind:   EntryQuestion,
		StepID: next.ID,
		Text:   next.Question,
		At:     time.Now(),
	})
	return nil
}

// pace waits out the typing delay without holding the session lock so
// Reset can interrupt it.
func (i *Interpreter) pace(ctx context.Context, gen int) error {
	i.mu.Lock()
	sctx := i.sessionCtx
	ok := i.generation == gen
	i.mu.Unlock()
	if !ok {
		return ErrSessionReset
	}

	if i.cfg.OnTyping != nil {
		i.cfg.OnTyping()
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-sctx.Done():
			cancel()
		case <-stop:
		}
	}()

	if err := i.cfg.Pacer.Wait(wctx); err != nil {
		if sctx.Err() != nil {
			return ErrSessionReset
		}
		return err
	}
	return nil
}

func (i *Interpreter) uploadFile(ctx context.Context, s step.Step, value interface{}) (interface{}, error) {
	constraints := storage.Constraints{AcceptedTypes: s.AcceptedTypes, MaxSize: s.MaxSize}

	// the shell may have uploaded out of band and hand us the reference
	if ref, ok := value.(FileRef); ok {
		if err := constraints.Validate(ref.Name, ref.MimeType, ref.Size); err != nil {
			return nil, &ValidationError{StepID: s.ID, Msg: err.Error()}
		}
		return ref, nil
	}

	up, ok := value.(FileUpload)
	if !ok {
		return nil, invalid(s.ID, "expected a file upload")
	}

	if err := constraints.Validate(up.Name, up.MimeType, up.Size); err != nil {
		return nil, &ValidationError{StepID: s.ID, Msg: err.Error()}
	}

	if i.cfg.Attachments == nil {
		return nil, fmt.Errorf("file uploads are not available")
	}

	dest, err := i.cfg.Attachments.RequestUploadDestination(ctx, up.Name, up.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to request upload destination: %w", err)
	}
	if err := i.cfg.Attachments.Upload(ctx, dest, up.Content, up.Size); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return FileRef{
		StorageID: dest.StorageID,
		Name:      up.Name,
		Size:      up.Size,
		MimeType:  up.MimeType,
	}, nil
}

// resolvePaymentAmount derives a selection payment's amount from the
// linked step's chosen option price.
func (i *Interpreter) resolvePaymentAmount(sess *Session, s step.Step, answer interface{}) interface{} {
	ref, ok := answer.(PaymentRef)
	if !ok || s.PaymentType != step.PaymentSelection || s.LinkedStepID == "" {
		return answer
	}
	linked, ok := sess.Answers[s.LinkedStepID]
	if !ok {
		return answer
	}
	switch v := linked.Answer.(type) {
	case step.Option:
		if v.Price != nil {
			ref.Amount = *v.Price
		}
	case []step.Option:
		total := 0.0
		priced := false
		for _, o := range v {
			if o.Price != nil {
				total += *o.Price
				priced = true
			}
		}
		if priced {
			ref.Amount = total
		}
	}
	return ref
}

func (i *Interpreter) appendEntry(sess *Session, e Entry) {
	sess.Transcript = append(sess.Transcript, e)
	if i.cfg.OnEntry != nil {
		i.cfg.OnEntry(e)
	}
}

func answerText(s step.Step, answer interface{}) string {
	switch v := answer.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case FileRef:
		return v.Name
	case step.Option:
		return v.Title
	case []step.Option:
		titles := make([]string, len(v))
		for i, o := range v {
			titles[i] = o.Title
		}
		return fmt.Sprintf("%v", titles)
	case PaymentRef:
		return v.Reference
	default:
		return fmt.Sprintf("%v", v)
	}
}
