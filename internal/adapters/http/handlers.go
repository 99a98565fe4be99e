// Package http is the server surface of the admission pipeline: the
// credential endpoint and the upload/processing endpoints.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/domain"
	"github.com/greenroom-dev/greenroom/internal/ingest"
	"github.com/greenroom-dev/greenroom/internal/token"
)

type Handler struct {
	issuer     *token.Issuer
	pipeline   *ingest.Pipeline
	pingPeriod time.Duration
}

func NewHandler(issuer *token.Issuer, pipeline *ingest.Pipeline, pingPeriod time.Duration) *Handler {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Handler{issuer: issuer, pipeline: pipeline, pingPeriod: pingPeriod}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "greenroom"})
}

type tokenRequest struct {
	RoomName            string          `json:"roomName"`
	ParticipantName     string          `json:"participantName"`
	ParticipantIdentity string          `json:"participantIdentity"`
	Metadata            json.RawMessage `json:"metadata"`
}

func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cred, err := h.issuer.Issue(c.Request.Context(), domain.JoinRequest{
		Room:        domain.RoomName(req.RoomName),
		Participant: domain.ParticipantName(req.ParticipantName),
		Identity:    req.ParticipantIdentity,
		Metadata:    req.Metadata,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "credential issuance failed"})
		return
	}
	c.JSON(http.StatusOK, cred)
}

// describeToken is an informational probe: it documents the request shape
// and never touches issuer state.
func (h *Handler) describeToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"endpoint":       "/api/token",
		"method":         http.MethodPost,
		"requiredFields": []string{"roomName", "participantName"},
		"optionalFields": []string{"participantIdentity", "metadata"},
	})
}

func (h *Handler) acceptUpload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(domain.MaxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > domain.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer f.Close()

	// Sniff the real content type; the declared one is client input.
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	contentType := http.DetectContentType(buf[:n])
	if err := domain.ValidateFile(contentType, file.Size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := f.Seek(0, 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rewind file failed"})
		return
	}

	job, err := h.pipeline.Accept(c.Request.Context(), file.Filename, file.Size, f)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("accept upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload failed"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Str("job", string(job.ID)).Str("file", job.FileName).Msg("upload accepted")
	c.JSON(http.StatusCreated, job)
}

func (h *Handler) uploadStatus(c *gin.Context) {
	job, ok := h.pipeline.Registry().Get(ingest.JobID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}
