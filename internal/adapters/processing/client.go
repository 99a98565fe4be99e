// Package processing is the client of the processing service: multipart
// upload plus the readiness watch (websocket push, polling fallback).
package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

const pollInterval = 500 * time.Millisecond

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, f core.File) (core.UploadReceipt, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	hdr.Set("Content-Type", f.MediaType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return core.UploadReceipt{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := io.Copy(part, f.Content); err != nil {
		return core.UploadReceipt{}, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return core.UploadReceipt{}, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/uploads", &body)
	if err != nil {
		return core.UploadReceipt{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return core.UploadReceipt{}, fmt.Errorf("processing service unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.UploadReceipt{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.UploadReceipt{}, fmt.Errorf("upload rejected: %s", serverError(payload, resp.StatusCode))
	}

	var receipt struct {
		UploadID string `json:"upload_id"`
	}
	if err := json.Unmarshal(payload, &receipt); err != nil || receipt.UploadID == "" {
		return core.UploadReceipt{}, fmt.Errorf("upload response missing upload_id")
	}
	return core.UploadReceipt{Ref: receipt.UploadID, Payload: payload}, nil
}

// Watch prefers the push channel and falls back to polling when the
// websocket cannot be established. The returned channel closes after a
// terminal update or on ctx cancellation.
func (c *Client) Watch(ctx context.Context, ref string) (<-chan core.ProcessingUpdate, error) {
	out := make(chan core.ProcessingUpdate, 8)
	if conn, err := dialEvents(ctx, c.base, ref); err == nil {
		go c.watchSocket(ctx, conn, ref, out)
		return out, nil
	} else {
		log.Debug().Err(err).Str("module", "adapters.processing").Str("ref", ref).Msg("events socket unavailable, polling")
	}
	go c.watchPoll(ctx, ref, out)
	return out, nil
}

func (c *Client) watchPoll(ctx context.Context, ref string, out chan<- core.ProcessingUpdate) {
	defer close(out)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		upd, terminal, err := c.pollOnce(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			out <- core.ProcessingUpdate{Status: domain.UploadFailed, Err: err.Error()}
			return
		}
		out <- upd
		if terminal {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) pollOnce(ctx context.Context, ref string) (core.ProcessingUpdate, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/uploads/"+ref, nil)
	if err != nil {
		return core.ProcessingUpdate{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return core.ProcessingUpdate{}, false, fmt.Errorf("processing service unreachable: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.ProcessingUpdate{}, false, err
	}
	if resp.StatusCode != http.StatusOK {
		return core.ProcessingUpdate{}, false, fmt.Errorf("status check failed: %s", serverError(payload, resp.StatusCode))
	}
	var st struct {
		Status string `json:"status"`
		Err    string `json:"error"`
	}
	if err := json.Unmarshal(payload, &st); err != nil {
		return core.ProcessingUpdate{}, false, fmt.Errorf("bad status payload: %w", err)
	}
	upd := mapJobState(st.Status, st.Err)
	return upd, upd.Status.Terminal(), nil
}

// mapJobState folds the service's job states onto the attempt statuses:
// anything before ready counts as processing.
func mapJobState(state, msg string) core.ProcessingUpdate {
	switch state {
	case "ready":
		return core.ProcessingUpdate{Status: domain.UploadReady}
	case "failed":
		if msg == "" {
			msg = "processing failed"
		}
		return core.ProcessingUpdate{Status: domain.UploadFailed, Err: msg}
	default:
		return core.ProcessingUpdate{Status: domain.UploadProcessing}
	}
}

func serverError(payload []byte, status int) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("http %d", status)
}
