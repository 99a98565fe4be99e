package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

// ErrNotAdmitted means the admission gate is closed for the given intent.
var ErrNotAdmitted = errors.New("admission gate closed")

// Visit is one room visit: idle -> connecting -> connected -> (left | error).
// Error and left are terminal for the visit; ReturnToForm resets to idle.
// A voluntary leave and an involuntary disconnect converge on the same
// teardown, indistinguishable to the rest of the system.
type Visit struct {
	issuer   core.CredentialIssuer
	dialer   core.RealtimeDialer
	uploadFn func() domain.UploadStatus

	mu       sync.Mutex
	state    domain.ConnectionState
	intent   domain.SessionIntent
	visitKey string
	// gen numbers the visit attempts. Results of issuance or dialing are
	// committed only while the generation they started under is current,
	// so a reset during an await cannot be overwritten by a late result.
	gen     uint64
	session core.RealtimeSession
	subs    []chan domain.ConnectionState
}

// NewVisit wires the lifecycle to its collaborators. uploadFn feeds the
// gate the current upload status; the gate is the only path into a room.
func NewVisit(issuer core.CredentialIssuer, dialer core.RealtimeDialer, uploadFn func() domain.UploadStatus) *Visit {
	return &Visit{
		issuer:   issuer,
		dialer:   dialer,
		uploadFn: uploadFn,
		state:    domain.ConnectionState{Phase: domain.ConnIdle},
	}
}

func (v *Visit) State() domain.ConnectionState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Visit) Intent() domain.SessionIntent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.intent
}

func (v *Visit) Subscribe() (<-chan domain.ConnectionState, func()) {
	ch := make(chan domain.ConnectionState, 16)
	v.mu.Lock()
	v.subs = append(v.subs, ch)
	v.mu.Unlock()
	cancel := func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, s := range v.subs {
			if s == ch {
				v.subs = append(v.subs[:i], v.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Enter runs one admission attempt: gate check, credential issuance, then
// the realtime dial. It fires once per (room, participant) visit; a
// repeated call for the same pair while the visit is live is a no-op.
func (v *Visit) Enter(ctx context.Context, intent domain.SessionIntent) error {
	if !CanJoin(string(intent.Room), string(intent.Participant), v.uploadFn()) {
		return ErrNotAdmitted
	}
	req, err := domain.NewJoinRequest(intent)
	if err != nil {
		return err
	}
	key := string(req.Room) + "\x00" + string(req.Participant)

	v.mu.Lock()
	if v.visitKey == key && v.state.Phase != domain.ConnIdle {
		v.mu.Unlock()
		return nil
	}
	if v.state.Phase == domain.ConnConnecting || v.state.Phase == domain.ConnConnected {
		v.mu.Unlock()
		return errors.New("another visit is active")
	}
	v.gen++
	gen := v.gen
	v.visitKey = key
	v.intent = intent
	v.replaceLocked(domain.ConnectionState{Phase: domain.ConnConnecting})
	v.mu.Unlock()

	log.Info().Str("module", "app.visit").Str("room", string(req.Room)).Str("identity", req.Identity).Msg("connecting")

	cred, err := v.issuer.Issue(ctx, req)
	if err != nil {
		v.toError(gen, "credential request failed: "+err.Error())
		return err
	}
	sess, err := v.dialer.Dial(ctx, cred)
	if err != nil {
		v.toError(gen, "room connection failed: "+err.Error())
		return err
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		sess.Close()
		log.Debug().Str("module", "app.visit").Str("room", string(req.Room)).Msg("stale connection dropped")
		return nil
	}
	v.session = sess
	v.replaceLocked(domain.ConnectionState{Phase: domain.ConnConnected})
	v.mu.Unlock()
	log.Info().Str("module", "app.visit").Str("room", string(req.Room)).Msg("connected")

	go v.watchDisconnect(sess)
	return nil
}

// Leave is the voluntary exit. Its cleanup is identical to the transport
// dropping the session.
func (v *Visit) Leave() {
	v.teardown("leave")
}

// ReturnToForm resets the visit back to the pre-join form. It supersedes
// any attempt still awaiting issuance or dialing.
func (v *Visit) ReturnToForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
	v.intent = domain.SessionIntent{}
	v.visitKey = ""
	v.replaceLocked(domain.ConnectionState{Phase: domain.ConnIdle})
}

func (v *Visit) watchDisconnect(sess core.RealtimeSession) {
	<-sess.Done()
	v.teardown("disconnect")
}

func (v *Visit) teardown(cause string) {
	v.mu.Lock()
	if v.state.Phase != domain.ConnConnected {
		v.mu.Unlock()
		return
	}
	sess := v.session
	v.session = nil
	v.intent = domain.SessionIntent{}
	v.replaceLocked(domain.ConnectionState{Phase: domain.ConnLeft})
	v.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
	log.Info().Str("module", "app.visit").Str("cause", cause).Msg("left room")
}

// toError commits a failed attempt iff its generation is still current.
func (v *Visit) toError(gen uint64, msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.gen != gen {
		log.Debug().Str("module", "app.visit").Msg("stale failure dropped")
		return
	}
	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
	v.intent = domain.SessionIntent{}
	v.replaceLocked(domain.ConnectionState{Phase: domain.ConnError, Err: msg})
}

func (v *Visit) replaceLocked(next domain.ConnectionState) {
	v.state = next
	for _, ch := range v.subs {
		select {
		case ch <- next:
		default:
		}
	}
}
