package processing

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/core"
	"github.com/greenroom-dev/greenroom/internal/domain"
)

func dialEvents(ctx context.Context, base, ref string) (*websocket.Conn, error) {
	url := wsURL(base) + "/api/uploads/" + ref + "/events"
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

func (c *Client) watchSocket(ctx context.Context, conn *websocket.Conn, ref string, out chan<- core.ProcessingUpdate) {
	defer close(out)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			log.Warn().Err(err).Str("module", "adapters.processing").Str("ref", ref).Msg("events read")
			out <- core.ProcessingUpdate{Status: domain.UploadFailed, Err: "readiness signal lost"}
			return
		}
		var st struct {
			Status string `json:"status"`
			Err    string `json:"error"`
		}
		if err := json.Unmarshal(data, &st); err != nil {
			log.Warn().Err(err).Str("module", "adapters.processing").Str("ref", ref).Msg("bad event payload")
			continue
		}
		upd := mapJobState(st.Status, st.Err)
		out <- upd
		if upd.Status.Terminal() {
			return
		}
	}
}
