package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/superdarn-canada/radarsync/internal/transfer"
)

// Defaults for the wait policy. The per-file bound is a proportional
// heuristic, not a bandwidth estimate; it works fine nearly all the time.
const (
	DefaultPerFileDeadline = 30 * time.Second
	DefaultPollInterval    = 30 * time.Second
)

// TransferService is the slice of the transfer client the orchestrator
// consumes. Defined here so tests can substitute a scripted service.
type TransferService interface {
	ListDirectory(ctx context.Context, endpointID, dirPath, filter string) ([]transfer.FileEntry, error)
	SubmitBatch(ctx context.Context, batch transfer.Batch) (transfer.Task, error)
	PollTask(ctx context.Context, taskID string, deadline, interval time.Duration) (transfer.Task, bool, error)
}

// DeadlinePolicy computes the soft wait bound from the number of matched
// files. It bounds only how long the client waits, never the transfer.
type DeadlinePolicy func(files int) time.Duration

// PerFileDeadline returns the default proportional policy: d per file.
func PerFileDeadline(d time.Duration) DeadlinePolicy {
	return func(files int) time.Duration {
		return time.Duration(files) * d
	}
}

// Status is the terminal state of one sync run.
type Status string

// Run outcomes.
const (
	// StatusCompleted: the task reported terminal success before the
	// soft deadline (or there was nothing to transfer).
	StatusCompleted Status = "completed"

	// StatusStillRunning: the soft deadline elapsed first. The task keeps
	// running on the service; the client merely stopped waiting.
	StatusStillRunning Status = "still-running"

	// StatusFailed: a remote-service error, or the task itself failed.
	StatusFailed Status = "failed"
)

// Outcome reports what one run did.
type Outcome struct {
	Status   Status
	TaskID   string
	Files    int
	Deadline time.Duration

	// Reason is set for StatusFailed: the classified, service-provided
	// error where available.
	Reason string
}

// Orchestrator coordinates one run: translate, list, batch, submit, wait.
// Strictly sequential, no retries — re-running is the operator's scheduler's
// job, and checksum sync makes re-runs cheap and idempotent.
type Orchestrator struct {
	svc          TransferService
	destEndpoint string
	deadline     DeadlinePolicy
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator transferring to destEndpoint.
// A nil policy and zero interval select the defaults.
func NewOrchestrator(
	svc TransferService,
	destEndpoint string,
	policy DeadlinePolicy,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if policy == nil {
		policy = PerFileDeadline(DefaultPerFileDeadline)
	}

	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		svc:          svc,
		destEndpoint: destEndpoint,
		deadline:     policy,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run executes one sync of req from the mirror endpoint. Remote-service
// failures are classified into the outcome rather than returned: the run
// always ends in exactly one of the three states, and the process exits
// cleanly either way. The request must already be validated.
func (o *Orchestrator) Run(ctx context.Context, req Request, mirrorEP transfer.Endpoint) Outcome {
	spec := Translate(req.Category, req.Year, req.Month, req.Pattern)

	o.logger.Info("listing mirror directory",
		slog.String("path", spec.RemotePath),
		slog.String("filter", spec.Filter),
	)

	entries, err := o.svc.ListDirectory(ctx, mirrorEP.ID, spec.RemotePath, spec.Filter)
	if err != nil {
		return o.failed("listing mirror directory", err)
	}

	files := fileNames(entries)
	if len(files) == 0 {
		o.logger.Info("no files matched, nothing to transfer")
		return Outcome{Status: StatusCompleted}
	}

	deadline := o.deadline(len(files))

	o.logger.Info("transferring files",
		slog.Int("files", len(files)),
		slog.Duration("soft_deadline", deadline),
	)

	batch := o.buildBatch(req, spec, mirrorEP.ID, files)

	task, err := o.svc.SubmitBatch(ctx, batch)
	if err != nil {
		return o.failed("submitting batch", err)
	}

	final, done, err := o.svc.PollTask(ctx, task.ID, deadline, o.pollInterval)
	if err != nil {
		out := o.failed("polling task", err)
		out.TaskID = task.ID
		out.Files = len(files)
		out.Deadline = deadline

		return out
	}

	out := Outcome{TaskID: task.ID, Files: len(files), Deadline: deadline}

	switch {
	case !done:
		out.Status = StatusStillRunning
	case final.Status == transfer.TaskFailed:
		out.Status = StatusFailed
		out.Reason = taskFailureReason(final)
	default:
		out.Status = StatusCompleted
	}

	return out
}

// buildBatch constructs the checksum-sync batch: one item per matched file,
// notifications on failure only. Checksum sync is what makes re-running the
// same selection idempotent and cheap.
func (o *Orchestrator) buildBatch(req Request, spec FilterSpec, sourceEndpoint string, files []string) transfer.Batch {
	batch := transfer.Batch{
		SourceEndpoint: sourceEndpoint,
		DestEndpoint:   o.destEndpoint,
		Label:          fmt.Sprintf("radarsync %s %d-%02d", req.Category, req.Year, req.Month),
		SyncLevel:      transfer.SyncChecksum,
		NotifySuccess:  false,
		NotifyFailure:  true,
		Items:          make([]transfer.Item, 0, len(files)),
	}

	prefix := spec.SourcePrefix()
	for _, name := range files {
		batch.Items = append(batch.Items, transfer.Item{
			SourcePath: path.Join(prefix, name),
			DestPath:   path.Join(req.LocalDest, name),
		})
	}

	return batch
}

// failed classifies a remote error into a Failed outcome, preserving the
// service-provided code and message where available.
func (o *Orchestrator) failed(op string, err error) Outcome {
	reason := classifyRemoteErr(op, err)
	o.logger.Error("sync run failed", slog.String("op", op), slog.String("reason", reason))

	return Outcome{Status: StatusFailed, Reason: reason}
}

// classifyRemoteErr renders one human-readable reason per the error
// taxonomy: API error with code and message, connection, timeout, network.
func classifyRemoteErr(op string, err error) string {
	var apiErr *transfer.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: API error code %s: %s", op, apiErr.Code, apiErr.Message)
	}

	switch {
	case errors.Is(err, transfer.ErrTimeout):
		return fmt.Sprintf("%s: REST request timed out", op)
	case errors.Is(err, transfer.ErrConnection):
		return fmt.Sprintf("%s: error communicating with REST API server", op)
	case errors.Is(err, transfer.ErrNetwork):
		return fmt.Sprintf("%s: network error", op)
	default:
		return fmt.Sprintf("%s: %v", op, err)
	}
}

// taskFailureReason extracts the service's explanation for a failed task.
func taskFailureReason(task transfer.Task) string {
	if task.NiceStatus != "" {
		return "task failed: " + task.NiceStatus
	}

	return "task failed"
}

// fileNames keeps the names of file entries, dropping subdirectories that
// happen to match the filter.
func fileNames(entries []transfer.FileEntry) []string {
	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.Type == "dir" {
			continue
		}

		names = append(names, e.Name)
	}

	return names
}
