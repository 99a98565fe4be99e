package domain

// JoinCredential is a signed, time-scoped authorization for one identity
// to participate in one room. Expiry is enforced by the issuer; the
// credential is held only for the duration of a connection attempt.
type JoinCredential struct {
	Token       string          `json:"token"`
	URL         string          `json:"url"`
	Room        RoomName        `json:"roomName"`
	Participant ParticipantName `json:"participantName"`
}
