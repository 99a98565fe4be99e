package domain

type ConnectionPhase string

const (
	ConnIdle       ConnectionPhase = "idle"
	ConnConnecting ConnectionPhase = "connecting"
	ConnConnected  ConnectionPhase = "connected"
	ConnError      ConnectionPhase = "error"
	ConnLeft       ConnectionPhase = "left"
)

// ConnectionState is the tagged state of one room visit. Err is set iff
// Phase == ConnError. Exactly one instance exists per active visit and it
// is replaced wholesale on every transition.
type ConnectionState struct {
	Phase ConnectionPhase
	Err   string
}

// Terminal reports whether the visit is over; returning to the form
// resets to idle.
func (s ConnectionState) Terminal() bool {
	return s.Phase == ConnError || s.Phase == ConnLeft
}
