package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// SearchEndpoints runs a full-text endpoint search and returns the results
// in the order the service produced them. Callers that need a specific
// endpoint are expected to verify candidates themselves.
func (c *Client) SearchEndpoints(ctx context.Context, query string) ([]Endpoint, error) {
	path := "/endpoint_search?filter_fulltext=" + url.QueryEscape(query)

	var out endpointSearchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("endpoint search",
		slog.String("query", query),
		slog.Int("results", len(out.Data)),
	)

	return out.Data, nil
}

// ListDirectory lists a directory on an endpoint, filtered server-side.
// filter uses the Transfer API filter dialect (e.g. "name:~*.bz2"); an
// empty filter lists everything. Only file names are returned in entries;
// subdirectories come back with Type "dir" and are included as-is.
func (c *Client) ListDirectory(ctx context.Context, endpointID, dirPath, filter string) ([]FileEntry, error) {
	q := url.Values{}
	q.Set("path", dirPath)

	if filter != "" {
		q.Set("filter", filter)
	}

	path := "/operation/endpoint/" + url.PathEscape(endpointID) + "/ls?" + q.Encode()

	var out lsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("directory listing",
		slog.String("endpoint", endpointID),
		slog.String("path", dirPath),
		slog.String("filter", filter),
		slog.Int("entries", len(out.Data)),
	)

	return out.Data, nil
}

// SubmitBatch submits a batch transfer. The Transfer API requires a fresh
// submission ID per submission; the service uses it to deduplicate retried
// POSTs, so one SubmitBatch call can create at most one task.
func (c *Client) SubmitBatch(ctx context.Context, batch Batch) (Task, error) {
	var sub submissionIDResponse
	if err := c.do(ctx, http.MethodGet, "/submission_id", nil, &sub); err != nil {
		return Task{}, fmt.Errorf("transfer: obtaining submission id: %w", err)
	}

	doc := transferDoc{
		DataType:       "transfer",
		SubmissionID:   sub.Value,
		SourceEndpoint: batch.SourceEndpoint,
		DestEndpoint:   batch.DestEndpoint,
		Label:          batch.Label,
		SyncLevel:      int(batch.SyncLevel),
		NotifySuccess:  batch.NotifySuccess,
		NotifyFailure:  batch.NotifyFailure,
		Data:           make([]transferItemDoc, 0, len(batch.Items)),
	}

	for _, item := range batch.Items {
		doc.Data = append(doc.Data, transferItemDoc{
			DataType:   "transfer_item",
			SourcePath: item.SourcePath,
			DestPath:   item.DestPath,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return Task{}, fmt.Errorf("transfer: encoding batch: %w", err)
	}

	var out submitResponse
	if err := c.do(ctx, http.MethodPost, "/transfer", bytes.NewReader(body), &out); err != nil {
		return Task{}, err
	}

	c.logger.Info("batch submitted",
		slog.String("task_id", out.TaskID),
		slog.Int("items", len(batch.Items)),
		slog.String("label", batch.Label),
	)

	return Task{ID: out.TaskID, Status: TaskActive}, nil
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var out Task
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, &out); err != nil {
		return Task{}, err
	}

	return out, nil
}

// PollTask checks the task at the given interval until it reaches a
// terminal state or the soft deadline elapses, whichever comes first.
// It returns the last observed task state and whether it was terminal.
// The deadline bounds only the wait: an unfinished task keeps running on
// the service after PollTask returns.
func (c *Client) PollTask(ctx context.Context, taskID string, deadline, interval time.Duration) (Task, bool, error) {
	waitUntil := c.now().Add(deadline)

	for {
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return Task{}, false, err
		}

		if task.Terminal() {
			c.logger.Info("task reached terminal state",
				slog.String("task_id", taskID),
				slog.String("status", task.Status),
			)

			return task, true, nil
		}

		if !c.now().Add(interval).After(waitUntil) {
			if err := c.sleepFunc(ctx, interval); err != nil {
				return task, false, fmt.Errorf("transfer: poll canceled: %w", err)
			}

			continue
		}

		c.logger.Info("soft deadline reached before task completion",
			slog.String("task_id", taskID),
			slog.String("status", task.Status),
		)

		return task, false, nil
	}
}
