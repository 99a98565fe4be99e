package app

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

// Tracker owns the single active UploadAttempt and drives it through
// validating -> uploading -> uploaded -> processing -> ready, with failed
// absorbing any error. Transitions replace the attempt wholesale and are
// committed only when the attempt ID still matches, so a superseded
// upload's late results are dropped.
type Tracker struct {
	client core.ProcessingClient

	mu      sync.Mutex
	attempt domain.UploadAttempt
	subs    []chan domain.UploadAttempt
}

func NewTracker(client core.ProcessingClient) *Tracker {
	return &Tracker{
		client:  client,
		attempt: domain.UploadAttempt{Status: domain.UploadIdle},
	}
}

func (t *Tracker) Snapshot() domain.UploadAttempt {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempt
}

func (t *Tracker) Status() domain.UploadStatus {
	return t.Snapshot().Status
}

// Subscribe delivers a snapshot after every committed transition. The
// channel is buffered; a full buffer drops intermediate snapshots, never
// the lock.
func (t *Tracker) Subscribe() (<-chan domain.UploadAttempt, func()) {
	ch := make(chan domain.UploadAttempt, 16)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, s := range t.subs {
			if s == ch {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Select handles a file picked or dropped by the user. An invalid file is
// rejected before any network call: the error is returned for inline
// display and an in-flight or completed attempt stays untouched. A valid
// file replaces any prior attempt outright, a processing one included.
func (t *Tracker) Select(ctx context.Context, f core.File) (domain.UploadAttempt, error) {
	if err := domain.ValidateFile(f.MediaType, f.Size); err != nil {
		t.mu.Lock()
		if t.attempt.Status == domain.UploadIdle || t.attempt.Status == domain.UploadFailed {
			t.replaceLocked(domain.UploadAttempt{
				FileName:  f.Name,
				MediaType: f.MediaType,
				Size:      f.Size,
				Status:    domain.UploadFailed,
				Err:       err.Error(),
			})
		}
		t.mu.Unlock()
		return t.Snapshot(), err
	}

	id := domain.AttemptID(uuid.NewString())
	attempt := domain.UploadAttempt{
		ID:        id,
		FileName:  f.Name,
		MediaType: f.MediaType,
		Size:      f.Size,
		Status:    domain.UploadValidating,
	}
	t.mu.Lock()
	t.replaceLocked(attempt)
	t.mu.Unlock()
	log.Info().Str("module", "app.tracker").Str("attempt", string(id)).Str("file", f.Name).Int64("size", f.Size).Msg("file selected")

	t.commit(id, func(a domain.UploadAttempt) domain.UploadAttempt {
		a.Status = domain.UploadUploading
		return a
	})
	go t.run(ctx, id, f)
	return t.Snapshot(), nil
}

// Reset discards the attempt, back to idle. Used when the form resets.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.replaceLocked(domain.UploadAttempt{Status: domain.UploadIdle})
	t.mu.Unlock()
}

func (t *Tracker) run(ctx context.Context, id domain.AttemptID, f core.File) {
	receipt, err := t.client.Upload(ctx, f)
	if err != nil {
		t.fail(id, "upload failed: "+err.Error())
		return
	}
	if !t.commit(id, func(a domain.UploadAttempt) domain.UploadAttempt {
		a.Status = domain.UploadUploaded
		a.Result = receipt.Payload
		return a
	}) {
		return // superseded while uploading
	}
	// Uploaded is not enough for admission: the processing service owns
	// the readiness signal.
	t.commit(id, func(a domain.UploadAttempt) domain.UploadAttempt {
		a.Status = domain.UploadProcessing
		return a
	})

	updates, err := t.client.Watch(ctx, receipt.Ref)
	if err != nil {
		t.fail(id, "processing watch failed: "+err.Error())
		return
	}
	for upd := range updates {
		switch upd.Status {
		case domain.UploadReady:
			t.commit(id, func(a domain.UploadAttempt) domain.UploadAttempt {
				a.Status = domain.UploadReady
				return a
			})
			return
		case domain.UploadFailed:
			msg := upd.Err
			if msg == "" {
				msg = "processing failed"
			}
			t.fail(id, msg)
			return
		}
	}
	if ctx.Err() == nil {
		t.fail(id, "processing ended without a readiness signal")
	}
}

func (t *Tracker) fail(id domain.AttemptID, msg string) {
	t.commit(id, func(a domain.UploadAttempt) domain.UploadAttempt {
		a.Status = domain.UploadFailed
		a.Err = msg
		return a
	})
}

// commit applies fn iff the tracked attempt is still the one the caller
// worked on. This is the stale-response guard.
func (t *Tracker) commit(id domain.AttemptID, fn func(domain.UploadAttempt) domain.UploadAttempt) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.attempt.ID != id {
		log.Debug().Str("module", "app.tracker").Str("attempt", string(id)).Msg("stale result dropped")
		return false
	}
	t.replaceLocked(fn(t.attempt))
	return true
}

func (t *Tracker) replaceLocked(next domain.UploadAttempt) {
	t.attempt = next
	for _, ch := range t.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
