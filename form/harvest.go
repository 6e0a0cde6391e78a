package form

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/client"
	"github.com/siteharvester/gateway/content"
	"github.com/siteharvester/gateway/log"
)

// User-facing messages of the harvest form.
const (
	MsgEnterURL       = "Please enter a URL."
	MsgInvalidURL     = "Please enter a valid URL (e.g., https://example.com)."
	MsgHarvestSuccess = "Success! Your PDF is downloading."
	MsgUnexpected     = "An unexpected error occurred. Please try again."
)

// DefaultSuccessDisplay is how long the harvest success message stays visible.
const DefaultSuccessDisplay = 3 * time.Second

// Harvester requests a harvested artifact for a URL.
type Harvester interface {
	Harvest(ctx context.Context, url string) (*client.Artifact, error)
}

// FileSaver materializes a downloaded artifact, the "save as" side effect of a browser.
// It returns where the artifact was saved.
type FileSaver interface {
	Save(ctx context.Context, body io.Reader, filename, mediaType string) (string, error)
}

// Harvest is the controller behind the hero form: a URL input that turns into a PDF
// download.
type Harvest struct {
	*machine

	log     zerolog.Logger
	api     Harvester
	saver   FileSaver
	display time.Duration

	input string
}

// HarvestOption configures a Harvest form.
type HarvestOption func(*Harvest)

// WithSuccessDisplay overrides DefaultSuccessDisplay.
func WithSuccessDisplay(d time.Duration) HarvestOption {
	return func(h *Harvest) {
		h.display = d
	}
}

// WithHarvestLogger replaces the component logger.
func WithHarvestLogger(l zerolog.Logger) HarvestOption {
	return func(h *Harvest) {
		h.log = l
	}
}

func NewHarvest(api Harvester, saver FileSaver, opts ...HarvestOption) *Harvest {
	h := &Harvest{
		machine: newMachine(),
		log:     log.NewLogger("harvest-form"),
		api:     api,
		saver:   saver,
		display: DefaultSuccessDisplay,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SetURL edits the input. Edits are ignored while the input is disabled.
func (h *Harvest) SetURL(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state.Status != Submitting {
		h.input = s
	}
}

// URL returns the current input.
func (h *Harvest) URL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input
}

// CanSubmit mirrors the submit control: enabled when idle-ish and the input is not blank.
func (h *Harvest) CanSubmit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.Status != Submitting && strings.TrimSpace(h.input) != ""
}

// State returns the current snapshot.
func (h *Harvest) State() State {
	return h.snapshot()
}

// Subscribe streams state snapshots, starting with the current one. Call cancel to stop.
func (h *Harvest) Subscribe() (states <-chan State, cancel func()) {
	return h.subscribe()
}

// Close cancels the pending success timer and ends subscriptions.
func (h *Harvest) Close() {
	h.close()
}

// Submit validates the input and, when valid, harvests it and saves the result. It
// blocks until the submission settles and returns the settled state. A Submit issued
// while another is in flight is rejected with ErrBusy without contacting the gateway.
func (h *Harvest) Submit(ctx context.Context) (State, error) {
	h.mu.Lock()
	if h.state.Status == Submitting {
		h.mu.Unlock()
		return State{}, ErrBusy
	}

	raw := h.input
	if raw == "" {
		defer h.mu.Unlock()
		h.fail(&ValidationError{Field: "url", Message: MsgEnterURL})
		return h.state, nil
	}

	u, ok := ParseURL(raw)
	if !ok {
		defer h.mu.Unlock()
		h.fail(&ValidationError{Field: "url", Message: MsgInvalidURL})
		return h.state, nil
	}

	h.set(State{Status: Submitting})
	h.mu.Unlock()

	target := strings.TrimSpace(raw)
	saved, err := h.harvest(ctx, target, func(disposition string) string {
		return content.ResolveFilename(disposition, u)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		h.log.Error().Err(err).Str("url", target).Msg("Harvest failed")
		h.fail(err)
		return h.state, nil
	}

	h.input = ""
	h.set(State{Status: Success, Success: MsgHarvestSuccess, Saved: saved})
	if h.display > 0 {
		h.clearAfter(h.display)
	}
	return h.state, nil
}

func (h *Harvest) harvest(ctx context.Context, target string, filename func(string) string) (string, error) {
	artifact, err := h.api.Harvest(ctx, target)
	if err != nil {
		return "", err
	}
	defer artifact.Body.Close()

	name := filename(artifact.Disposition)
	h.log.Debug().Str("filename", name).Int64("length", artifact.Length).Msg("Saving artifact")

	return h.saver.Save(ctx, artifact.Body, name, artifact.MediaType)
}

// fail moves to Error with a readable message. Caller must hold mu.
func (h *Harvest) fail(err error) {
	h.set(State{Status: Error, Err: message(err)})
}

func message(err error) string {
	if err == nil {
		return MsgUnexpected
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnexpected
}
