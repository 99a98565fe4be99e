package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/ingest"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// uploadEvents pushes job status snapshots over a websocket until the job
// reaches a terminal state. This is the push half of the readiness
// contract; GET /api/uploads/:id is the polling half.
func (h *Handler) uploadEvents(c *gin.Context) {
	id := ingest.JobID(c.Param("id"))
	updates, cancelWatch, ok := h.pipeline.Registry().Watch(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancelWatch()
		log.Error().Err(err).Str("module", "adapters.http").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Str("job", string(id)).Msg("events subscriber")

	// Reader only notices the peer going away.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancelWatch()
				return
			}
		}
	}()

	go h.writeEvents(ws, id, updates)
}

func (h *Handler) writeEvents(ws *websocket.Conn, id ingest.JobID, updates <-chan ingest.Job) {
	defer ws.Close()
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case job, ok := <-updates:
			if !ok {
				// Terminal snapshot already delivered; say goodbye.
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			data, err := json.Marshal(job)
			if err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Str("job", string(id)).Msg("events marshal")
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Str("job", string(id)).Msg("events write")
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
