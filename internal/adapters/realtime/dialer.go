// Package realtime opens the real-time session from a join credential.
// Track rendering belongs to the in-room components; this adapter only
// manages connect and disconnect.
package realtime

import (
	"context"
	"fmt"
	"sync"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

type Dialer struct{}

func (Dialer) Dial(ctx context.Context, cred domain.JoinCredential) (core.RealtimeSession, error) {
	s := &session{done: make(chan struct{})}

	cb := &lksdk.RoomCallback{
		OnDisconnected: s.markDone,
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				log.Info().
					Str("module", "adapters.realtime").
					Str("room", string(cred.Room)).
					Str("kind", track.Kind().String()).
					Str("participant", rp.Identity()).
					Msg("track subscribed")
			},
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(cred.URL, cred.Token, cb)
	if err != nil {
		return nil, fmt.Errorf("connect to room: %w", err)
	}
	s.room = room
	log.Info().Str("module", "adapters.realtime").Str("room", string(cred.Room)).Str("url", cred.URL).Msg("session open")
	return s, nil
}

type session struct {
	room *lksdk.Room
	done chan struct{}
	once sync.Once
}

func (s *session) Done() <-chan struct{} { return s.done }

func (s *session) Close() {
	if s.room != nil {
		s.room.Disconnect()
	}
	s.markDone()
}

func (s *session) markDone() {
	s.once.Do(func() { close(s.done) })
}
