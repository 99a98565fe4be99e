// Command greenroom drives the admission pipeline end to end against a
// greenroom server: select a document, wait for processing, then join
// the room once admitted.
package main

import (
	"context"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/greenroom-dev/greenroom/internal/adapters/issuer"
	"github.com/greenroom-dev/greenroom/internal/adapters/processing"
	"github.com/greenroom-dev/greenroom/internal/adapters/realtime"
	"github.com/greenroom-dev/greenroom/internal/app"
	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

func main() {
	var (
		server        = pflag.String("server", "http://localhost:8080", "greenroom server base URL")
		room          = pflag.String("room", "", "room name")
		name          = pflag.String("name", "", "participant name")
		file          = pflag.String("file", "", "case document (PDF)")
		aiInterviewer = pflag.Bool("ai-interviewer", false, "request the AI interviewer in this room")
	)
	pflag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *room == "" || *name == "" || *file == "" {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	attempt, tracker, err := runUpload(ctx, *server, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("upload")
	}
	if attempt.Status != domain.UploadReady {
		log.Fatal().Str("status", string(attempt.Status)).Str("error", attempt.Err).Msg("document not ready")
	}

	visit := app.NewVisit(issuer.NewClient(*server), realtime.Dialer{}, tracker.Status)
	states, stop := visit.Subscribe()
	defer stop()

	intent := domain.SessionIntent{
		Room:          domain.RoomName(*room),
		Participant:   domain.ParticipantName(*name),
		AIInterviewer: *aiInterviewer,
		UploadResult:  attempt.Result,
	}
	if err := visit.Enter(ctx, intent); err != nil {
		log.Fatal().Err(err).Msg("join")
	}

	for {
		select {
		case <-ctx.Done():
			visit.Leave()
			log.Info().Msg("left room")
			return
		case st := <-states:
			log.Info().Str("phase", string(st.Phase)).Str("error", st.Err).Msg("connection state")
			if st.Terminal() {
				return
			}
		}
	}
}

func runUpload(ctx context.Context, server, path string) (domain.UploadAttempt, *app.Tracker, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadAttempt{}, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return domain.UploadAttempt{}, nil, err
	}

	tracker := app.NewTracker(processing.NewClient(server))
	updates, stop := tracker.Subscribe()
	defer stop()

	mediaType := mime.TypeByExtension(filepath.Ext(path))
	_, err = tracker.Select(ctx, core.File{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      info.Size(),
		Content:   f,
	})
	if err != nil {
		return tracker.Snapshot(), tracker, err
	}

	for {
		select {
		case <-ctx.Done():
			return tracker.Snapshot(), tracker, ctx.Err()
		case a := <-updates:
			log.Info().Str("status", string(a.Status)).Str("error", a.Err).Msg("upload state")
			if a.Status.Terminal() {
				return a, tracker, nil
			}
		}
	}
}
