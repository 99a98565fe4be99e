// Package domain contains the entities of the admission pipeline, just
// data and invariants. No transport or lifecycle logic here.
package domain

import (
	"encoding/json"
	"fmt"
)

const (
	// AcceptedMediaType is the only document type the pipeline accepts.
	AcceptedMediaType = "application/pdf"
	// MaxUploadBytes is the inclusive upper bound for a selected file.
	MaxUploadBytes = 10 << 20 // 10 MiB
)

type UploadStatus string

const (
	UploadIdle       UploadStatus = "idle"
	UploadValidating UploadStatus = "validating"
	UploadUploading  UploadStatus = "uploading"
	UploadUploaded   UploadStatus = "uploaded"
	UploadProcessing UploadStatus = "processing"
	UploadReady      UploadStatus = "ready"
	UploadFailed     UploadStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s UploadStatus) Terminal() bool {
	return s == UploadReady || s == UploadFailed
}

// AttemptID identifies one upload attempt. Results carrying a stale
// AttemptID are discarded instead of being applied to current state.
type AttemptID string

// UploadAttempt is an immutable snapshot of the single tracked upload.
// The tracker replaces the whole value on every transition; callers never
// observe a half-written attempt.
type UploadAttempt struct {
	ID        AttemptID
	FileName  string
	MediaType string
	Size      int64
	Status    UploadStatus
	// Err is set iff Status == UploadFailed.
	Err string
	// Result is the opaque processing payload, set at uploaded and
	// preserved unchanged through processing and ready.
	Result json.RawMessage
}

// ValidateFile checks the client-side file constraints. Violations never
// reach the network layer.
func ValidateFile(mediaType string, size int64) error {
	if mediaType != AcceptedMediaType {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("unsupported type %q, only %s is accepted", mediaType, AcceptedMediaType)}
	}
	if size > MaxUploadBytes {
		return &ValidationError{Field: "file", Reason: fmt.Sprintf("file is %d bytes, limit is %d", size, int64(MaxUploadBytes))}
	}
	return nil
}
