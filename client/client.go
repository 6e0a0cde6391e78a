// Package client calls the gateway endpoints the way the landing page does. It is the
// transport used by the form controllers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/siteharvester/gateway/apierr"
	"github.com/siteharvester/gateway/util"
)

const (
	harvestPath = "/api/harvest"
	contactPath = "/api/contact"

	defaultMediaType = "application/pdf"
)

// Error is a non-2xx answer of the gateway. Its message is the detail shown to the user.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// Artifact is a harvested document. Body must be closed by the caller.
type Artifact struct {
	Body        io.ReadCloser
	Disposition string
	MediaType   string
	// Length is -1 when unknown.
	Length int64
}

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Subscribe bool   `json:"subscribe"`
}

// Client talks to a gateway at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout bounds every request, body download included. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		c := *cl.http
		c.Timeout = d
		cl.http = &c
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Harvest requests a PDF of url. On success the returned Artifact streams the document.
func (c *Client) Harvest(ctx context.Context, url string) (*Artifact, error) {
	resp, err := c.post(ctx, harvestPath, map[string]string{"url": url})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	return &Artifact{
		Body:        resp.Body,
		Disposition: resp.Header.Get("Content-Disposition"),
		MediaType:   util.MediaType(resp.Header, defaultMediaType),
		Length:      resp.ContentLength,
	}, nil
}

// Contact submits the contact form and returns the confirmation payload.
func (c *Client) Contact(ctx context.Context, req ContactRequest) (json.RawMessage, error) {
	resp, err := c.post(ctx, contactPath, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	raw, ok := apierr.DecodeRaw(resp.Body)
	if !ok {
		return nil, errors.New("invalid response from the contact endpoint")
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}
	return resp, nil
}

func statusError(resp *http.Response) *Error {
	fallback := fmt.Sprintf("HTTP error! Status: %d", resp.StatusCode)
	return &Error{
		Status: resp.StatusCode,
		Detail: apierr.DecodeDetail(resp.Body, fallback),
	}
}
