// Package apierr holds the client-facing error shape shared by the gateway and its
// clients: every failure is answered as a JSON object carrying a "detail" string.
package apierr

import (
	"encoding/json"
	"io"
	"strings"
)

// Messages shown when the upstream gives no usable detail.
const (
	MsgBackend  = "An error occurred in the backend service."
	MsgInternal = "An internal server error occurred"
	MsgUnknown  = "An unknown internal server error occurred."
)

// maxErrorBody bounds how much of an error body is read before decoding.
const maxErrorBody = 1 << 20

// Detail is the error body returned by every gateway endpoint.
type Detail struct {
	Detail string `json:"detail"`
}

// New returns a Detail carrying msg.
func New(msg string) Detail {
	return Detail{Detail: msg}
}

// DecodeDetail reads a JSON error body and returns its "detail" string. It never
// fails: a body that is not JSON, has no string detail, or has an empty one yields
// fallback.
func DecodeDetail(r io.Reader, fallback string) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return fallback
	}

	switch d := body.Detail.(type) {
	case string:
		if strings.TrimSpace(d) != "" {
			return d
		}
	case nil:
	default:
		// Validation errors from the backend come as structured lists; keep them readable.
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}

	return fallback
}

// DecodeRaw reads a JSON body and returns it re-encoded verbatim when it is valid JSON.
// ok is false when the body could not be decoded.
func DecodeRaw(r io.Reader) (raw json.RawMessage, ok bool) {
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&raw); err != nil {
		return nil, false
	}
	return raw, true
}
