package domain

import (
	"encoding/json"
	"strings"
)

type (
	RoomName        string
	ParticipantName string
)

// SessionIntent is what the pre-join form collects. It is consumed once
// to build a JoinRequest and does not persist past that.
type SessionIntent struct {
	Room          RoomName
	Participant   ParticipantName
	AIInterviewer bool
	// UploadResult is the processing payload of the ready upload.
	UploadResult json.RawMessage
}

// Validate checks the name fields the way the admission gate does:
// non-empty after trimming.
func (i SessionIntent) Validate() error {
	if strings.TrimSpace(string(i.Room)) == "" {
		return &ValidationError{Field: "roomName", Reason: "required"}
	}
	if strings.TrimSpace(string(i.Participant)) == "" {
		return &ValidationError{Field: "participantName", Reason: "required"}
	}
	return nil
}

// JoinRequest is immutable once built and sent to the credential issuer
// exactly once per room-join attempt.
type JoinRequest struct {
	Room        RoomName
	Participant ParticipantName
	Identity    string
	Metadata    json.RawMessage
}

// NewJoinRequest builds a JoinRequest from a valid intent. The derived
// identity is the normalized participant name.
func NewJoinRequest(i SessionIntent) (JoinRequest, error) {
	if err := i.Validate(); err != nil {
		return JoinRequest{}, err
	}
	room := RoomName(strings.TrimSpace(string(i.Room)))
	name := ParticipantName(strings.TrimSpace(string(i.Participant)))
	return JoinRequest{
		Room:        room,
		Participant: name,
		Identity:    NormalizeIdentity(string(name)),
		Metadata:    joinMetadata(i),
	}, nil
}

// joinMetadata is the upload result, with the AI interviewer request
// merged in so the room backend can dispatch the agent. A result that is
// not a JSON object is kept whole under its own key.
func joinMetadata(i SessionIntent) json.RawMessage {
	if !i.AIInterviewer {
		return i.UploadResult
	}
	fields := map[string]json.RawMessage{}
	if len(i.UploadResult) > 0 {
		if err := json.Unmarshal(i.UploadResult, &fields); err != nil {
			fields = map[string]json.RawMessage{"upload_result": i.UploadResult}
		}
	}
	fields["ai_interviewer"] = json.RawMessage("true")
	meta, err := json.Marshal(fields)
	if err != nil {
		return i.UploadResult
	}
	return meta
}

// NormalizeIdentity lowercases the name and collapses internal whitespace
// runs to single hyphens, producing an identifier-safe participant identity.
func NormalizeIdentity(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "-")
}
