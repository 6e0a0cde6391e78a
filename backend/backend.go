package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/config"
	"github.com/siteharvester/gateway/log"
)

// ModeScrape asks the backend to scrape the page and render it as a PDF.
const ModeScrape = "scrape"

// APIKeyHeader carries the harvest backend secret.
const APIKeyHeader = "X-API-Key"

// Backend is the external SiteHarvester service the gateway forwards to.
type Backend interface {
	// Process asks the backend to harvest url. The caller owns the response body and
	// must close it; on a 2xx status the body is the generated PDF stream.
	Process(ctx context.Context, creds config.HarvestCredentials, url string) (*http.Response, error)
	// Contact forwards a contact submission verbatim. The caller must close the body.
	Contact(ctx context.Context, creds config.ContactCredentials, payload json.RawMessage) (*http.Response, error)
}

// ProcessRequest is the body of POST {endpoint}/process.
type ProcessRequest struct {
	URL  string `json:"url"`
	Mode string `json:"mode"`
}

// Client talks to the backend over HTTP.
type Client struct {
	log  zerolog.Logger
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Client) {
		b.http = c
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Client) {
		b.log = l
	}
}

// NewClient returns a backend Client. The default HTTP client has no overall timeout:
// PDF generation can take minutes and the response is streamed.
func NewClient(opts ...Option) *Client {
	c := &Client{
		log: log.NewLogger("backend"),
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Process(ctx context.Context, creds config.HarvestCredentials, url string) (*http.Response, error) {
	body, err := json.Marshal(ProcessRequest{URL: url, Mode: ModeScrape})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode process request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.Endpoint+"/process", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create process request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, creds.APIKey)

	return c.do(req)
}

func (c *Client) Contact(ctx context.Context, creds config.ContactCredentials, payload json.RawMessage) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.BaseURL+"/contact", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create contact request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "request to %s failed", req.URL.Path)
	}

	c.log.Debug().
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend responded")

	return resp, nil
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
