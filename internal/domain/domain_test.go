package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateFileBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		mediaType string
		size      int64
		wantErr   bool
	}{
		{"pdf at limit", AcceptedMediaType, MaxUploadBytes, false},
		{"pdf one byte over", AcceptedMediaType, MaxUploadBytes + 1, true},
		{"pdf small", AcceptedMediaType, 2 << 20, false},
		{"png rejected", "image/png", 1024, true},
		{"plain text rejected", "text/plain", 1024, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFile(tc.mediaType, tc.size)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateFile(%q, %d) = %v, wantErr=%v", tc.mediaType, tc.size, err, tc.wantErr)
			}
			if err != nil {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Jane Doe", "jane-doe"},
		{"  Jane   Q.   Doe  ", "jane-q.-doe"},
		{"SOLO", "solo"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeIdentity(tc.in); got != tc.want {
			t.Fatalf("NormalizeIdentity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewJoinRequest(t *testing.T) {
	req, err := NewJoinRequest(SessionIntent{
		Room:         " panel-1 ",
		Participant:  " Jane Doe ",
		UploadResult: []byte(`{"case_id":"c1"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Room != "panel-1" || req.Participant != "Jane Doe" {
		t.Fatalf("names not trimmed: %#v", req)
	}
	if req.Identity != "jane-doe" {
		t.Fatalf("identity = %q", req.Identity)
	}
	if string(req.Metadata) != `{"case_id":"c1"}` {
		t.Fatalf("metadata not carried: %s", req.Metadata)
	}

	if _, err := NewJoinRequest(SessionIntent{Room: "panel-1", Participant: "   "}); err == nil {
		t.Fatalf("blank participant should be rejected")
	}
	if _, err := NewJoinRequest(SessionIntent{Room: "", Participant: "Jane"}); err == nil {
		t.Fatalf("empty room should be rejected")
	}
}

func TestNewJoinRequestAIInterviewer(t *testing.T) {
	req, err := NewJoinRequest(SessionIntent{
		Room:          "panel-1",
		Participant:   "Jane Doe",
		AIInterviewer: true,
		UploadResult:  []byte(`{"case_id":"c1"}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var meta map[string]json.RawMessage
	if err := json.Unmarshal(req.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if string(meta["ai_interviewer"]) != "true" {
		t.Fatalf("ai_interviewer flag not merged: %s", req.Metadata)
	}
	if string(meta["case_id"]) != `"c1"` {
		t.Fatalf("upload result lost: %s", req.Metadata)
	}

	req, err = NewJoinRequest(SessionIntent{Room: "panel-1", Participant: "Jane", AIInterviewer: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(req.Metadata) != `{"ai_interviewer":true}` {
		t.Fatalf("flag-only metadata = %s", req.Metadata)
	}

	// A non-object result is kept whole, not dropped.
	req, err = NewJoinRequest(SessionIntent{
		Room:          "panel-1",
		Participant:   "Jane",
		AIInterviewer: true,
		UploadResult:  []byte(`["c1","c2"]`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var meta2 map[string]json.RawMessage
	if err := json.Unmarshal(req.Metadata, &meta2); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if string(meta2["ai_interviewer"]) != "true" {
		t.Fatalf("flag missing: %s", req.Metadata)
	}
	if string(meta2["upload_result"]) != `["c1","c2"]` {
		t.Fatalf("non-object upload result lost: %s", req.Metadata)
	}
}
