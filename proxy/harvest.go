package proxy

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/apierr"
	"github.com/siteharvester/gateway/backend"
	"github.com/siteharvester/gateway/config"
)

const (
	msgURLRequired     = "URL is required"
	msgHarvestNotReady = "API endpoint or key is not configured on the server"

	pdfContentType     = "application/pdf"
	defaultDisposition = "attachment"
)

// HarvestRequest is the body accepted by POST /api/harvest.
type HarvestRequest struct {
	URL string `json:"url"`
}

// HarvestHandler forwards harvest requests to the backend and streams the PDF back.
type HarvestHandler struct {
	log     zerolog.Logger
	source  config.Source
	backend backend.Backend
}

func NewHarvestHandler(log zerolog.Logger, source config.Source, b backend.Backend) *HarvestHandler {
	return &HarvestHandler{
		log:     log,
		source:  source,
		backend: b,
	}
}

func (h *HarvestHandler) Handle(c *gin.Context) {
	log := requestLogger(c, h.log)

	var req HarvestRequest
	// URL format is validated by the caller; only presence is checked here.
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, apierr.New(msgURLRequired))
		return
	}

	creds, err := h.source.Harvest()
	if err != nil {
		log.Error().Err(err).Msg("Harvest backend is not configured")
		c.JSON(http.StatusInternalServerError, apierr.New(configDetail(msgHarvestNotReady, err)))
		return
	}

	resp, err := h.backend.Process(c.Request.Context(), creds, req.URL)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL).Msg("Harvest request failed")
		c.JSON(http.StatusInternalServerError, apierr.New(apierr.MsgInternal))
		return
	}
	defer resp.Body.Close()

	if !backend.IsSuccess(resp.StatusCode) {
		log.Warn().Int("status", resp.StatusCode).Str("url", req.URL).Msg("Backend rejected harvest request")
		forwardError(c, resp)
		return
	}

	disposition := resp.Header.Get("Content-Disposition")
	if disposition == "" {
		disposition = defaultDisposition
	}

	log.Info().Str("url", req.URL).Int64("length", resp.ContentLength).Msg("Streaming harvested PDF")

	c.DataFromReader(http.StatusOK, resp.ContentLength, pdfContentType, resp.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// forwardError relays an upstream JSON error body verbatim with the upstream status. A body
// that is not JSON is replaced by a generic detail so the error path cannot fail itself.
func forwardError(c *gin.Context, resp *http.Response) {
	raw, ok := apierr.DecodeRaw(resp.Body)
	if !ok {
		c.JSON(resp.StatusCode, apierr.New(apierr.MsgBackend))
		return
	}
	c.Data(resp.StatusCode, "application/json", raw)
}

func configDetail(prefix string, err error) string {
	var missing *config.MissingError
	if errors.As(err, &missing) {
		return prefix + " (missing " + strings.Join(missing.Vars, ", ") + ")"
	}
	return prefix
}
