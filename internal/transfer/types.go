package transfer

// Endpoint is one result from an endpoint search. Only the fields radarsync
// inspects are decoded; the Transfer API returns many more.
type Endpoint struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email"`
}

// FileEntry is one entry from a directory listing.
type FileEntry struct {
	Name string `json:"name"`
	Type string `json:"type"` // "file" or "dir"
	Size int64  `json:"size"`
}

// SyncLevel selects how the service decides whether a destination file is
// already up to date. radarsync always uses SyncChecksum so repeated runs
// are idempotent, but the type mirrors the full API range.
type SyncLevel int

// Transfer API sync levels.
const (
	SyncExists   SyncLevel = 0 // skip if the destination file exists
	SyncSize     SyncLevel = 1 // skip if sizes match
	SyncMtime    SyncLevel = 2 // skip if modification times match
	SyncChecksum SyncLevel = 3 // skip if checksums match
)

// Item is a single (source path, destination path) pair within a batch.
type Item struct {
	SourcePath string
	DestPath   string
}

// Batch describes one transfer submission: where from, where to, which
// files, and how the service should treat existing destination files.
type Batch struct {
	SourceEndpoint string
	DestEndpoint   string
	Label          string
	SyncLevel      SyncLevel
	NotifySuccess  bool
	NotifyFailure  bool
	Items          []Item
}

// Task identifies a submitted transfer job. The client only ever observes
// a task; it never mutates or cancels one.
type Task struct {
	ID     string `json:"task_id"`
	Status string `json:"status"`
	// NiceStatus carries the service's human-readable status detail when
	// present (e.g. the failure explanation for a FAILED task).
	NiceStatus string `json:"nice_status_short_description"`
}

// Task status values as reported by GET /task/{id}.
const (
	TaskActive    = "ACTIVE"
	TaskInactive  = "INACTIVE"
	TaskSucceeded = "SUCCEEDED"
	TaskFailed    = "FAILED"
)

// Terminal reports whether the task has reached a final state.
func (t Task) Terminal() bool {
	return t.Status == TaskSucceeded || t.Status == TaskFailed
}

// Wire types below mirror the Transfer API JSON exactly. Unexported; callers
// see only the normalized types above.

type endpointSearchResponse struct {
	Data []Endpoint `json:"DATA"`
}

type lsResponse struct {
	Data []FileEntry `json:"DATA"`
}

type submissionIDResponse struct {
	Value string `json:"value"`
}

type transferItemDoc struct {
	DataType   string `json:"DATA_TYPE"`
	SourcePath string `json:"source_path"`
	DestPath   string `json:"destination_path"`
}

type transferDoc struct {
	DataType       string            `json:"DATA_TYPE"`
	SubmissionID   string            `json:"submission_id"`
	SourceEndpoint string            `json:"source_endpoint"`
	DestEndpoint   string            `json:"destination_endpoint"`
	Label          string            `json:"label,omitempty"`
	SyncLevel      int               `json:"sync_level"`
	NotifySuccess  bool              `json:"notify_on_succeeded"`
	NotifyFailure  bool              `json:"notify_on_failed"`
	Data           []transferItemDoc `json:"DATA"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type apiErrorDoc struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}
