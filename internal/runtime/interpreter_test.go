package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"formflow/internal/step"
	"formflow/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSubmissionStore struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
	failNext bool
}

func (m *memSubmissionStore) CreateSubmission(ctx context.Context, payload map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return "", errors.New("rate limit exceeded")
	}
	m.payloads = append(m.payloads, payload)
	return fmt.Sprintf("sub-%d", len(m.payloads)), nil
}

type memAttachmentStore struct {
	mu         sync.Mutex
	uploads    map[string][]byte
	created    []FileRef
	failCreate map[string]bool // storageID -> fail once
}

func newMemAttachmentStore() *memAttachmentStore {
	return &memAttachmentStore{uploads: make(map[string][]byte), failCreate: make(map[string]bool)}
}

func (m *memAttachmentStore) RequestUploadDestination(ctx context.Context, name, contentType string) (UploadDestination, error) {
	id := fmt.Sprintf("obj-%s", name)
	return UploadDestination{URL: "mem://" + id, StorageID: id}, nil
}

func (m *memAttachmentStore) Upload(ctx context.Context, dest UploadDestination, content io.Reader, size int64) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[dest.StorageID] = data
	return nil
}

func (m *memAttachmentStore) CreateAttachment(ctx context.Context, submissionID string, file FileRef) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate[file.StorageID] {
		delete(m.failCreate, file.StorageID)
		return "", errors.New("attachment store unavailable")
	}
	m.created = append(m.created, file)
	return "att-" + file.StorageID, nil
}

func newTestInterpreter(wf workflow.Workflow, subs *memSubmissionStore, atts *memAttachmentStore) *Interpreter {
	return NewInterpreter(Config{
		Workflow:    wf,
		Submissions: subs,
		Attachments: atts,
		Pacer:       NopPacer{},
	})
}

func TestScenarioA_EndScreenCompletion(t *testing.T) {
	name := step.New(step.TypeText)
	name.Question = "What is your name?"
	email := step.New(step.TypeEmail)
	end := step.New(step.TypeEndScreen)
	end.Title = "All set"
	end.Message = "Talk soon."

	subs := &memSubmissionStore{}
	it := newTestInterpreter(workflow.Workflow{"consulting": {name, email, end}}, subs, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "consulting"))
	require.NoError(t, it.Answer(ctx, "Ada"))
	require.NoError(t, it.Answer(ctx, "ada@example.com"))

	sess := it.Session()
	assert.Equal(t, StateCompleted, sess.State)
	require.Len(t, subs.payloads, 1)

	payload := subs.payloads[0]
	assert.Equal(t, "consulting", payload["service"])

	got, ok := payload[name.ID].(Answer)
	require.True(t, ok)
	assert.Equal(t, "Ada", got.Answer)
	assert.Equal(t, "What is your name?", got.Question)
	assert.Equal(t, step.TypeText, got.Type)

	got, ok = payload[email.ID].(Answer)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", got.Answer)

	last := sess.Transcript[len(sess.Transcript)-1]
	assert.Equal(t, EntryCompleted, last.Kind)
	assert.Equal(t, "All set", last.Payload["title"])
	assert.Equal(t, "Talk soon.", last.Payload["message"])
}

func TestScenarioB_ExternalBrowserRedirect(t *testing.T) {
	msg := step.New(step.TypeText)
	ext := step.New(step.TypeExternalBrowser)
	ext.URL = "https://x.test"
	ext.ButtonText = "Book now"

	subs := &memSubmissionStore{}
	it := newTestInterpreter(workflow.Workflow{"booking": {msg, ext}}, subs, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "booking"))
	require.NoError(t, it.Answer(ctx, "hello"))

	sess := it.Session()
	assert.Equal(t, StateRedirected, sess.State)

	last := sess.Transcript[len(sess.Transcript)-1]
	assert.Equal(t, EntryRedirect, last.Kind)
	assert.Equal(t, "https://x.test", last.Payload["url"])
	assert.Equal(t, "Book now", last.Payload["buttonText"])

	// no end_screen fields anywhere in the payload
	require.Len(t, subs.payloads, 1)
	for _, v := range subs.payloads[0] {
		if a, ok := v.(Answer); ok {
			assert.NotEqual(t, step.TypeEndScreen, a.Type)
		}
	}
}

func TestCoercionFailureRepromptsSameStep(t *testing.T) {
	num := step.New(step.TypeNumber)
	subs := &memSubmissionStore{}
	it := newTestInterpreter(workflow.Workflow{"quote": {num, step.New(step.TypeEndScreen)}}, subs, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "quote"))

	err := it.Answer(ctx, "abc")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	sess := it.Session()
	assert.Equal(t, 0, sess.Cursor)
	assert.Equal(t, StateInProgress, sess.State)
	assert.Empty(t, sess.Answers)

	require.NoError(t, it.Answer(ctx, "42"))
	assert.Equal(t, StateCompleted, it.Session().State)

	a := subs.payloads[0][num.ID].(Answer)
	assert.Equal(t, 42.0, a.Answer)
	assert.Equal(t, step.TypeNumber, a.Type)
}

func TestFileStepUploadsAndCreatesAttachment(t *testing.T) {
	file := step.New(step.TypeFile)
	subs := &memSubmissionStore{}
	atts := newMemAttachmentStore()
	it := newTestInterpreter(workflow.Workflow{"design": {file, step.New(step.TypeEndScreen)}}, subs, atts)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "design"))

	up := FileUpload{
		Name:     "brief.pdf",
		MimeType: "application/pdf",
		Size:     4,
		Content:  strings.NewReader("data"),
	}
	require.NoError(t, it.Answer(ctx, up))

	assert.Equal(t, StateCompleted, it.Session().State)
	assert.Equal(t, []byte("data"), atts.uploads["obj-brief.pdf"])
	require.Len(t, atts.created, 1)
	assert.Equal(t, "brief.pdf", atts.created[0].Name)

	a := subs.payloads[0][file.ID].(Answer)
	ref, ok := a.Answer.(FileRef)
	require.True(t, ok)
	assert.Equal(t, "obj-brief.pdf", ref.StorageID)
	assert.Equal(t, "application/pdf", ref.MimeType)
}

func TestFileStepRejectsDisallowedType(t *testing.T) {
	file := step.New(step.TypeFile)
	file.AcceptedTypes = []string{"image/*"}
	it := newTestInterpreter(workflow.Workflow{"design": {file, step.New(step.TypeEndScreen)}}, &memSubmissionStore{}, newMemAttachmentStore())

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "design"))

	err := it.Answer(ctx, FileUpload{Name: "a.exe", MimeType: "application/octet-stream", Size: 1, Content: strings.NewReader("x")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, it.Session().Cursor)
}

func TestAttachmentFailureDoesNotFailSubmission(t *testing.T) {
	f1 := step.New(step.TypeFile)
	f2 := step.New(step.TypeFile)
	subs := &memSubmissionStore{}
	atts := newMemAttachmentStore()
	atts.failCreate["obj-one.png"] = true

	it := newTestInterpreter(workflow.Workflow{"design": {f1, f2, step.New(step.TypeEndScreen)}}, subs, atts)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "design"))
	require.NoError(t, it.Answer(ctx, FileUpload{Name: "one.png", MimeType: "image/png", Size: 1, Content: strings.NewReader("1")}))
	require.NoError(t, it.Answer(ctx, FileUpload{Name: "two.png", MimeType: "image/png", Size: 1, Content: strings.NewReader("2")}))

	assert.Equal(t, StateCompleted, it.Session().State)
	require.Len(t, subs.payloads, 1)
	// the surviving attachment was still created
	require.Len(t, atts.created, 1)
	assert.Equal(t, "two.png", atts.created[0].Name)
}

func TestSubmissionFailureIsRetryable(t *testing.T) {
	subs := &memSubmissionStore{failNext: true}
	it := newTestInterpreter(workflow.Workflow{"contact": {step.New(step.TypeText), step.New(step.TypeEndScreen)}}, subs, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "contact"))

	err := it.Answer(ctx, "hi")
	require.Error(t, err)
	assert.Equal(t, StateSubmissionFailed, it.Session().State)

	require.NoError(t, it.Retry(ctx))
	assert.Equal(t, StateCompleted, it.Session().State)
	assert.Len(t, subs.payloads, 1)
	assert.NotEmpty(t, it.SubmissionID())
}

func TestReset_ReturnsToServiceSelection(t *testing.T) {
	it := newTestInterpreter(workflow.Workflow{"contact": {step.New(step.TypeText), step.New(step.TypeEndScreen)}}, &memSubmissionStore{}, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "contact"))
	it.Reset()

	sess := it.Session()
	assert.Equal(t, StateNotStarted, sess.State)
	assert.Empty(t, sess.Answers)
	assert.Empty(t, sess.Transcript)
	assert.Empty(t, sess.SelectedService)

	// a fresh run works after reset
	require.NoError(t, it.SelectService(ctx, "contact"))
	require.NoError(t, it.Answer(ctx, "again"))
	assert.Equal(t, StateCompleted, it.Session().State)
}

func TestSelectService_Unknown(t *testing.T) {
	it := newTestInterpreter(workflow.Workflow{"contact": {}}, &memSubmissionStore{}, nil)
	err := it.SelectService(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestSelectService_EmptyServiceSubmitsImmediately(t *testing.T) {
	// only the auto-appended end screen: no questions to ask
	subs := &memSubmissionStore{}
	it := newTestInterpreter(workflow.Workflow{"contact": {}}, subs, nil)

	require.NoError(t, it.SelectService(context.Background(), "contact"))
	assert.Equal(t, StateCompleted, it.Session().State)
	require.Len(t, subs.payloads, 1)
	assert.Equal(t, "contact", subs.payloads[0]["service"])
}

func TestAnswer_NoQuestionPending(t *testing.T) {
	it := newTestInterpreter(workflow.Workflow{"contact": {}}, &memSubmissionStore{}, nil)
	err := it.Answer(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoQuestionPending)
}

func TestPaymentSelectionDerivesAmountFromLinkedChoice(t *testing.T) {
	price := 120.0
	choice := step.New(step.TypeMultipleChoice)
	choice.Options = []step.Option{{Title: "Deep clean", Price: &price}, {Title: "Quick pass"}}

	pay := step.New(step.TypePayment)
	pay.PaymentType = step.PaymentSelection
	pay.LinkedStepID = choice.ID
	pay.Currency = "usd"

	subs := &memSubmissionStore{}
	it := newTestInterpreter(workflow.Workflow{"cleaning": {choice, pay, step.New(step.TypeEndScreen)}}, subs, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "cleaning"))
	require.NoError(t, it.Answer(ctx, "Deep clean"))
	require.NoError(t, it.Answer(ctx, "pi_777"))

	a := subs.payloads[0][pay.ID].(Answer)
	ref := a.Answer.(PaymentRef)
	assert.Equal(t, 120.0, ref.Amount)
	assert.Equal(t, "pi_777", ref.Reference)
}

func TestTranscriptOrder(t *testing.T) {
	text := step.New(step.TypeText)
	text.Question = "Tell us more"
	it := newTestInterpreter(workflow.Workflow{"contact": {text, step.New(step.TypeEndScreen)}}, &memSubmissionStore{}, nil)

	ctx := context.Background()
	require.NoError(t, it.SelectService(ctx, "contact"))
	require.NoError(t, it.Answer(ctx, "details"))

	kinds := make([]EntryKind, 0)
	for _, e := range it.Session().Transcript {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EntryKind{EntryAnswer, EntryQuestion, EntryAnswer, EntryCompleted}, kinds)
}
