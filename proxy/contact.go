package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/apierr"
	"github.com/siteharvester/gateway/backend"
	"github.com/siteharvester/gateway/config"
	"github.com/siteharvester/gateway/slack"
)

const (
	msgInvalidBody      = "Invalid JSON body"
	msgContactMalformed = "The contact service returned an invalid response."

	notifyTimeout = 10 * time.Second
)

// ContactHandler forwards contact form submissions to the user backend.
type ContactHandler struct {
	log      zerolog.Logger
	source   config.Source
	backend  backend.Backend
	notifier slack.Notifier
}

// NewContactHandler returns a ContactHandler. notifier may be nil.
func NewContactHandler(log zerolog.Logger, source config.Source, b backend.Backend, notifier slack.Notifier) *ContactHandler {
	return &ContactHandler{
		log:      log,
		source:   source,
		backend:  b,
		notifier: notifier,
	}
}

func (h *ContactHandler) Handle(c *gin.Context) {
	log := requestLogger(c, h.log)

	creds, err := h.source.Contact()
	if err != nil {
		log.Error().Err(err).Msg("Contact backend is not configured")
		c.JSON(http.StatusInternalServerError, apierr.New(errorDetail(err)))
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read contact body")
		c.JSON(http.StatusInternalServerError, apierr.New(errorDetail(err)))
		return
	}

	var form map[string]json.RawMessage
	if err := json.Unmarshal(payload, &form); err != nil || form == nil {
		c.JSON(http.StatusBadRequest, apierr.New(msgInvalidBody))
		return
	}

	resp, err := h.backend.Contact(c.Request.Context(), creds, payload)
	if err != nil {
		log.Error().Err(err).Msg("Contact request failed")
		c.JSON(http.StatusInternalServerError, apierr.New(errorDetail(err)))
		return
	}
	defer resp.Body.Close()

	if !backend.IsSuccess(resp.StatusCode) {
		detail := apierr.DecodeDetail(resp.Body, apierr.MsgBackend)
		log.Warn().Int("status", resp.StatusCode).Str("detail", detail).Msg("Backend rejected contact submission")
		c.JSON(resp.StatusCode, apierr.New(detail))
		return
	}

	raw, ok := apierr.DecodeRaw(resp.Body)
	if !ok {
		log.Error().Int("status", resp.StatusCode).Msg("Contact backend answered with invalid JSON")
		c.JSON(http.StatusInternalServerError, apierr.New(msgContactMalformed))
		return
	}

	c.Data(http.StatusOK, "application/json", raw)

	h.notify(log, payload)
}

// notify announces the submission in the background; failures never reach the caller.
func (h *ContactHandler) notify(log zerolog.Logger, payload []byte) {
	if h.notifier == nil {
		return
	}

	var s slack.Submission
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Debug().Err(err).Msg("Skipping notification for unrecognized contact payload")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := h.notifier.NotifyContact(ctx, s); err != nil {
			log.Warn().Err(err).Msg("Failed to send contact notification")
		}
	}()
}

func errorDetail(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return apierr.MsgUnknown
}
