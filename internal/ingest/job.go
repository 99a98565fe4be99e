// Package ingest runs the server side of document processing: it accepts
// uploaded documents, tracks their jobs, and signals readiness. The
// extraction itself sits behind the Extractor port.
package ingest

import (
	"context"
	"encoding/json"
	"time"
)

type JobID string

type JobState string

const (
	JobReceived   JobState = "received"
	JobProcessing JobState = "processing"
	JobReady      JobState = "ready"
	JobFailed     JobState = "failed"
)

func (s JobState) Terminal() bool { return s == JobReady || s == JobFailed }

// Job is an immutable snapshot of one processing job. The registry
// replaces the stored value on every transition.
type Job struct {
	ID        JobID           `json:"upload_id"`
	FileName  string          `json:"file_name"`
	Size      int64           `json:"size"`
	State     JobState        `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Err       string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Extractor turns a stored document into the structured result consumed
// by the in-room interview logic. Opaque to this package.
type Extractor interface {
	Extract(ctx context.Context, jobID JobID, path string) (json.RawMessage, error)
}
