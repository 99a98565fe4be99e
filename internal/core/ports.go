// Package core defines the ports of the admission pipeline. Adapters own
// the transports behind them; the app layer only sees these interfaces.
package core

import (
	"context"
	"encoding/json"
	"io"

	"github.com/greenroom-dev/greenroom/internal/domain"
)

// File is one selected document, picker or drop. Content is read once
// during upload.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Content   io.Reader
}

// UploadReceipt is what the processing service returns for an accepted
// upload. Payload is opaque to the pipeline and becomes the attempt's
// result; Ref keys the readiness watch.
type UploadReceipt struct {
	Ref     string
	Payload json.RawMessage
}

// ProcessingUpdate is one readiness signal from the processing service.
type ProcessingUpdate struct {
	Status domain.UploadStatus
	Err    string
}

// ProcessingClient talks to the processing service. Upload submits the
// document; Watch delivers status updates until a terminal state or ctx
// cancellation, then closes the channel.
type ProcessingClient interface {
	Upload(ctx context.Context, f File) (UploadReceipt, error)
	Watch(ctx context.Context, ref string) (<-chan ProcessingUpdate, error)
}

// CredentialIssuer exchanges a join request for a signed, time-scoped
// credential.
type CredentialIssuer interface {
	Issue(ctx context.Context, req domain.JoinRequest) (domain.JoinCredential, error)
}

// RealtimeSession is one open real-time connection.
// Owned by the visit; the visit must Close() it.
type RealtimeSession interface {
	// Done is closed when the transport drops the session, voluntary
	// Close included.
	Done() <-chan struct{}
	Close()
}

// RealtimeDialer opens a real-time session from a credential's token and
// endpoint.
type RealtimeDialer interface {
	Dial(ctx context.Context, cred domain.JoinCredential) (RealtimeSession, error)
}
