package jobs

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"formflow/internal/storage"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestScheduleBotPurge_Enqueues(t *testing.T) {
	enq := &fakeEnqueuer{}

	require.NoError(t, ScheduleBotPurge(enq, 24*time.Hour))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "submission:purgebot", enq.tasks[0].Type())
}

// A second process enqueueing the sweep at startup must not stack a
// parallel chain; the id conflict means one is already pending.
func TestScheduleBotPurge_IDConflictIsNotAnError(t *testing.T) {
	enq := &fakeEnqueuer{err: asynq.ErrTaskIDConflict}

	assert.NoError(t, ScheduleBotPurge(enq, 24*time.Hour))
	assert.Empty(t, enq.tasks)
}

func TestScheduleSubmissionNotify_Enqueues(t *testing.T) {
	enq := &fakeEnqueuer{}

	require.NoError(t, ScheduleSubmissionNotify(enq, "sub-1"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, "submission:notify", enq.tasks[0].Type())
	assert.Equal(t, "sub-1", string(enq.tasks[0].Payload()))
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

type fakeStorage struct {
	objects map[string]*closeRecorder
}

func (f *fakeStorage) PresignPut(ctx context.Context, objectName, contentType string, expiresIn time.Duration) (string, error) {
	return "", nil
}

func (f *fakeStorage) PresignGet(ctx context.Context, objectName string, expiresIn time.Duration) (string, error) {
	return "", nil
}

func (f *fakeStorage) Put(ctx context.Context, objectName string, reader io.Reader) error {
	return nil
}

func (f *fakeStorage) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	rc, ok := f.objects[objectName]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return rc, nil
}

func (f *fakeStorage) Delete(ctx context.Context, objectName string) error {
	return nil
}

var _ storage.Storage = (*fakeStorage)(nil)

func TestStoredObjectExists_ClosesHandle(t *testing.T) {
	rc := &closeRecorder{Reader: strings.NewReader("bytes")}
	store := &fakeStorage{objects: map[string]*closeRecorder{"obj-1": rc}}

	assert.True(t, storedObjectExists(context.Background(), store, "obj-1"))
	assert.True(t, rc.closed)

	assert.False(t, storedObjectExists(context.Background(), store, "missing"))
}
