// Package issuer is the HTTP client of the credential endpoint.
package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/greenroom-dev/greenroom/internal/domain"
)

type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient takes the server base URL, e.g. http://localhost:8080.
func NewClient(base string) *Client {
	return &Client{
		endpoint: strings.TrimRight(base, "/") + "/api/token",
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type issueRequest struct {
	RoomName            string          `json:"roomName"`
	ParticipantName     string          `json:"participantName"`
	ParticipantIdentity string          `json:"participantIdentity,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

func (c *Client) Issue(ctx context.Context, req domain.JoinRequest) (domain.JoinCredential, error) {
	body, err := json.Marshal(issueRequest{
		RoomName:            string(req.Room),
		ParticipantName:     string(req.Participant),
		ParticipantIdentity: req.Identity,
		Metadata:            req.Metadata,
	})
	if err != nil {
		return domain.JoinCredential{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.JoinCredential{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.JoinCredential{}, fmt.Errorf("credential endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.JoinCredential{}, fmt.Errorf("read credential response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
			return domain.JoinCredential{}, fmt.Errorf("credential endpoint: %s", apiErr.Error)
		}
		return domain.JoinCredential{}, fmt.Errorf("credential endpoint: http %d", resp.StatusCode)
	}

	var cred domain.JoinCredential
	if err := json.Unmarshal(payload, &cred); err != nil {
		return domain.JoinCredential{}, fmt.Errorf("bad credential payload: %w", err)
	}
	if cred.Token == "" || cred.URL == "" {
		return domain.JoinCredential{}, fmt.Errorf("credential payload missing token or url")
	}
	return cred, nil
}
