package issuer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/greenroom-dev/greenroom/internal/domain"
)

func TestIssueRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			RoomName            string          `json:"roomName"`
			ParticipantName     string          `json:"participantName"`
			ParticipantIdentity string          `json:"participantIdentity"`
			Metadata            json.RawMessage `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.RoomName != "panel-1" || req.ParticipantName != "Jane Doe" {
			t.Errorf("request body = %+v", req)
		}
		if string(req.Metadata) != `{"case_id":"case_42"}` {
			t.Errorf("metadata = %s", req.Metadata)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"token": "signed-jwt", "url": "ws://live:7880",
			"roomName": req.RoomName, "participantName": req.ParticipantName,
		})
	}))
	defer srv.Close()

	cred, err := NewClient(srv.URL).Issue(context.Background(), domain.JoinRequest{
		Room:        "panel-1",
		Participant: "Jane Doe",
		Identity:    "jane-doe",
		Metadata:    []byte(`{"case_id":"case_42"}`),
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cred.Token != "signed-jwt" || cred.URL != "ws://live:7880" {
		t.Fatalf("credential = %+v", cred)
	}
	if cred.Room != "panel-1" || cred.Participant != "Jane Doe" {
		t.Fatalf("credential echo = %+v", cred)
	}
}

func TestIssueSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"participantName: required"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Issue(context.Background(), domain.JoinRequest{Room: "panel-1"})
	if err == nil || !strings.Contains(err.Error(), "participantName") {
		t.Fatalf("server error message lost: %v", err)
	}
}

func TestIssueRejectsIncompleteCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "signed-jwt"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Issue(context.Background(), domain.JoinRequest{
		Room: "panel-1", Participant: "Jane Doe",
	})
	if err == nil || !strings.Contains(err.Error(), "missing token or url") {
		t.Fatalf("incomplete credential accepted: %v", err)
	}
}
