package upload

import "time"

// Status is the lifecycle state of a single upload.
// pending -> in_progress -> done | error; done and error are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Result holds the provider-assigned identity of a stored file.
type Result struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

// Record tracks one in-flight or completed transfer.
// Result is set only when Status is done; ErrorMessage only when error.
type Record struct {
	ID           string    `json:"uploadId"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	Result       *Result   `json:"result,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// TemporaryFile is the on-disk artifact of a decoded multipart upload.
// Ownership transfers to the orchestrator at Submit; from then on the
// per-file transfer job is solely responsible for deleting it.
type TemporaryFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// FileFailure describes one file that could not be transferred.
type FileFailure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BatchResult aggregates a bulk submission. Every input file lands in
// exactly one of the two slices.
type BatchResult struct {
	Successful []Result      `json:"successful"`
	Failed     []FileFailure `json:"failed"`
}

// OK reports whether every file in the batch was stored.
func (b BatchResult) OK() bool {
	return len(b.Failed) == 0
}
