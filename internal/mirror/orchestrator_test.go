package mirror

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/superdarn-canada/radarsync/internal/transfer"
)

// fakeService is a scripted TransferService recording everything the
// orchestrator asks of it.
type fakeService struct {
	listEntries []transfer.FileEntry
	listErr     error
	listedPath  string
	listedFilt  string

	submitted  *transfer.Batch
	submitTask transfer.Task
	submitErr  error

	polledTaskID   string
	polledDeadline time.Duration
	polledInterval time.Duration
	pollTask       transfer.Task
	pollDone       bool
	pollErr        error
}

func (f *fakeService) ListDirectory(_ context.Context, _, dirPath, filter string) ([]transfer.FileEntry, error) {
	f.listedPath = dirPath
	f.listedFilt = filter

	return f.listEntries, f.listErr
}

func (f *fakeService) SubmitBatch(_ context.Context, batch transfer.Batch) (transfer.Task, error) {
	f.submitted = &batch
	return f.submitTask, f.submitErr
}

func (f *fakeService) PollTask(_ context.Context, taskID string, deadline, interval time.Duration) (transfer.Task, bool, error) {
	f.polledTaskID = taskID
	f.polledDeadline = deadline
	f.polledInterval = interval

	return f.pollTask, f.pollDone, f.pollErr
}

func fileEntries(names ...string) []transfer.FileEntry {
	entries := make([]transfer.FileEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, transfer.FileEntry{Name: n, Type: "file"})
	}

	return entries
}

func testOrchestrator(svc TransferService) *Orchestrator {
	return NewOrchestrator(svc, "dest-uuid", nil, 0, nil)
}

var mirrorEP = transfer.Endpoint{ID: "mirror-uuid"}

func TestRun_BatchConstruction(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a.rawacf.bz2", "b.rawacf.bz2", "c.rawacf.bz2"),
		submitTask:  transfer.Task{ID: "task-1", Status: transfer.TaskActive},
		pollTask:    transfer.Task{ID: "task-1", Status: transfer.TaskSucceeded},
		pollDone:    true,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 3, out.Files)
	assert.Equal(t, "task-1", out.TaskID)

	// Listing used the translated path and filter.
	assert.Equal(t, "~/chroot/sddata/raw/2007/01/", svc.listedPath)
	assert.Equal(t, "name:~*20070101*sas*rawacf.bz2", svc.listedFilt)

	require.NotNil(t, svc.submitted)
	batch := *svc.submitted

	assert.Equal(t, "mirror-uuid", batch.SourceEndpoint)
	assert.Equal(t, "dest-uuid", batch.DestEndpoint)
	assert.Equal(t, transfer.SyncChecksum, batch.SyncLevel)
	assert.False(t, batch.NotifySuccess)
	assert.True(t, batch.NotifyFailure)

	require.Len(t, batch.Items, 3)
	assert.Equal(t, "/chroot/sddata/raw/2007/01/a.rawacf.bz2", batch.Items[0].SourcePath)
	assert.Equal(t, "/data/a.rawacf.bz2", batch.Items[0].DestPath)
	assert.Equal(t, "/chroot/sddata/raw/2007/01/c.rawacf.bz2", batch.Items[2].SourcePath)
	assert.Equal(t, "/data/c.rawacf.bz2", batch.Items[2].DestPath)
}

// Soft deadline is proportional: 30 time units per matched file.
func TestRun_SoftDeadlinePerFile(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a", "b", "c", "d", "e"),
		submitTask:  transfer.Task{ID: "task-5"},
		pollTask:    transfer.Task{ID: "task-5", Status: transfer.TaskSucceeded},
		pollDone:    true,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, 5*30*time.Second, svc.polledDeadline)
	assert.Equal(t, DefaultPollInterval, svc.polledInterval)
	assert.Equal(t, 5*30*time.Second, out.Deadline)
}

func TestRun_CustomDeadlinePolicy(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a", "b"),
		submitTask:  transfer.Task{ID: "t"},
		pollTask:    transfer.Task{Status: transfer.TaskSucceeded},
		pollDone:    true,
	}

	orch := NewOrchestrator(svc, "dest-uuid", PerFileDeadline(5*time.Second), time.Second, nil)
	orch.Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, 10*time.Second, svc.polledDeadline)
	assert.Equal(t, time.Second, svc.polledInterval)
}

// An empty listing is not an error: nothing is submitted and the run
// completes trivially.
func TestRun_EmptyListing(t *testing.T) {
	svc := &fakeService{}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusCompleted, out.Status)
	assert.Zero(t, out.Files)
	assert.Nil(t, svc.submitted)
	assert.Empty(t, svc.polledTaskID)
}

// Directories that happen to match the filter are not transferred.
func TestRun_DirectoriesSkipped(t *testing.T) {
	svc := &fakeService{
		listEntries: []transfer.FileEntry{
			{Name: "a.rawacf.bz2", Type: "file"},
			{Name: "stray-dir", Type: "dir"},
		},
		submitTask: transfer.Task{ID: "t"},
		pollTask:   transfer.Task{Status: transfer.TaskSucceeded},
		pollDone:   true,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	require.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 1, out.Files)
	require.Len(t, svc.submitted.Items, 1)
}

// Deadline elapsing first yields StillRunning; the task is left alone.
func TestRun_DeadlineElapses(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a"),
		submitTask:  transfer.Task{ID: "task-slow"},
		pollTask:    transfer.Task{ID: "task-slow", Status: transfer.TaskActive},
		pollDone:    false,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusStillRunning, out.Status)
	assert.Equal(t, "task-slow", out.TaskID)
	assert.Empty(t, out.Reason)
}

func TestRun_TaskFailed(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a"),
		submitTask:  transfer.Task{ID: "task-bad"},
		pollTask: transfer.Task{
			ID:         "task-bad",
			Status:     transfer.TaskFailed,
			NiceStatus: "permission denied on destination",
		},
		pollDone: true,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "permission denied on destination")
}

func TestRun_ListAPIError(t *testing.T) {
	svc := &fakeService{
		listErr: &transfer.APIError{StatusCode: 400, Code: "ClientError.NotFound", Message: "no such path"},
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "ClientError.NotFound")
	assert.Contains(t, out.Reason, "no such path")
	assert.Nil(t, svc.submitted)
}

func TestRun_SubmitConnectionError(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a"),
		submitErr:   transfer.ErrConnection,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "communicating with REST API server")
	assert.Empty(t, svc.polledTaskID)
}

func TestRun_PollTimeoutError(t *testing.T) {
	svc := &fakeService{
		listEntries: fileEntries("a", "b"),
		submitTask:  transfer.Task{ID: "task-2"},
		pollErr:     transfer.ErrTimeout,
	}

	out := testOrchestrator(svc).Run(context.Background(), validRequest(), mirrorEP)

	assert.Equal(t, StatusFailed, out.Status)
	assert.Contains(t, out.Reason, "timed out")
	// The submission still happened; the outcome keeps the task handle.
	assert.Equal(t, "task-2", out.TaskID)
	assert.Equal(t, 2, out.Files)
}
