// Package token mints signed join credentials for the realtime rooms.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/config"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

// ErrIssuance is fatal for the request; the caller decides whether the
// user gets to retry.
var ErrIssuance = errors.New("credential signing failed")

// Issuer signs room-join credentials with the configured key pair. It is
// never constructed half-configured.
type Issuer struct {
	apiKey    string
	apiSecret string
	url       string
	ttl       time.Duration
}

func NewIssuer(cfg config.LiveKit) (*Issuer, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.URL == "" {
		return nil, config.ErrSigningConfig
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		url:       cfg.URL,
		ttl:       ttl,
	}, nil
}

// Issue grants the identity permission to publish and subscribe
// audio/video/data in the named room, with the caller's metadata embedded
// so the in-room session can recover it.
func (s *Issuer) Issue(ctx context.Context, req domain.JoinRequest) (domain.JoinCredential, error) {
	room := strings.TrimSpace(string(req.Room))
	name := strings.TrimSpace(string(req.Participant))
	if room == "" {
		return domain.JoinCredential{}, &domain.ValidationError{Field: "roomName", Reason: "required"}
	}
	if name == "" {
		return domain.JoinCredential{}, &domain.ValidationError{Field: "participantName", Reason: "required"}
	}
	identity := req.Identity
	if identity == "" {
		identity = domain.NormalizeIdentity(name)
	}

	grant := &auth.VideoGrant{RoomJoin: true, Room: room}
	grant.SetCanPublish(true)
	grant.SetCanSubscribe(true)
	grant.SetCanPublishData(true)

	at := auth.NewAccessToken(s.apiKey, s.apiSecret).
		SetVideoGrant(grant).
		SetIdentity(identity).
		SetName(name).
		SetValidFor(s.ttl)
	if len(req.Metadata) > 0 {
		at.SetMetadata(string(req.Metadata))
	}

	jwt, err := at.ToJWT()
	if err != nil {
		log.Error().Err(err).Str("module", "token").Str("room", room).Msg("signing failed")
		return domain.JoinCredential{}, fmt.Errorf("%w: %v", ErrIssuance, err)
	}

	log.Info().Str("module", "token").Str("room", room).Str("identity", identity).Dur("ttl", s.ttl).Msg("credential issued")
	return domain.JoinCredential{
		Token:       jwt,
		URL:         s.url,
		Room:        domain.RoomName(room),
		Participant: domain.ParticipantName(name),
	}, nil
}
