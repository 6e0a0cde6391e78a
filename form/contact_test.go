package form

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/siteharvester/gateway/client"
)

type fakeSender struct {
	calls   atomic.Int32
	last    chan client.ContactRequest
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeSender) Contact(ctx context.Context, req client.ContactRequest) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.last != nil {
		f.last <- req
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func validFields() ContactFields {
	return ContactFields{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Message:   "Hello there",
		Subscribe: true,
	}
}

func TestContactValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*ContactFields)
		expected string
	}{
		{"missing name", func(f *ContactFields) { f.Name = "" }, MsgFillField},
		{"missing email", func(f *ContactFields) { f.Email = "" }, MsgFillField},
		{"malformed email", func(f *ContactFields) { f.Email = "ada@" }, MsgInvalidEmail},
		{"missing message", func(f *ContactFields) { f.Message = "" }, MsgFillField},
		{"unchecked box", func(f *ContactFields) { f.Subscribe = false }, MsgCheckBox},
		{"name reported first", func(f *ContactFields) { f.Name = ""; f.Email = "bad" }, MsgFillField},
		{"email before box", func(f *ContactFields) { f.Email = "bad"; f.Subscribe = false }, MsgInvalidEmail},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			api := &fakeSender{}
			c := NewContact(api)
			defer c.Close()

			fields := validFields()
			test.mutate(&fields)
			c.SetFields(fields)

			state, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Error, state.Status)
			assert.Equal(t, test.expected, state.Err)
			assert.Zero(t, api.calls.Load(), "no request may be sent for invalid input")
			assert.Equal(t, fields, c.Fields(), "fields are kept on validation errors")
		})
	}
}

func TestContactAcceptsWhitespaceValues(t *testing.T) {
	api := &fakeSender{}
	c := NewContact(api)
	defer c.Close()

	// Like a native required input, whitespace counts as a value.
	fields := validFields()
	fields.Name = "   "
	fields.Message = " "
	c.SetFields(fields)

	state, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, state.Status)
	assert.Equal(t, int32(1), api.calls.Load())
}

func TestContactSuccess(t *testing.T) {
	api := &fakeSender{last: make(chan client.ContactRequest, 1)}
	c := NewContact(api)
	defer c.Close()

	c.SetFields(validFields())
	state, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Success, state.Status)
	assert.Equal(t, MsgContactSuccess, state.Success)
	assert.Empty(t, state.Err)
	assert.Equal(t, validFields(), <-api.last)
	assert.Equal(t, ContactFields{}, c.Fields(), "fields are reset after success")
}

func TestContactSuccessPersists(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewContact(&fakeSender{})
	defer c.Close()

	c.SetFields(validFields())
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, MsgContactSuccess, c.State().Success)

	// The next submission replaces it.
	_, err = c.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.State().Success)
	assert.Equal(t, MsgFillField, c.State().Err)
}

func TestContactError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"gateway detail", &client.Error{Status: 400, Detail: "Email already registered"}, "Email already registered"},
		{"transport", errors.New("dial tcp: connection refused"), "dial tcp: connection refused"},
		{"empty", errors.New(""), MsgUnexpected},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewContact(&fakeSender{err: test.err})
			defer c.Close()

			c.SetFields(validFields())
			state, err := c.Submit(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Error, state.Status)
			assert.Equal(t, test.expected, state.Err)
			assert.Equal(t, validFields(), c.Fields(), "fields are kept on failure")
		})
	}
}

func TestContactRejectsConcurrentSubmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeSender{started: make(chan struct{}, 1), release: make(chan struct{})}
	c := NewContact(api)
	defer c.Close()

	c.SetFields(validFields())

	done := make(chan State, 1)
	go func() {
		state, err := c.Submit(context.Background())
		assert.NoError(t, err)
		done <- state
	}()

	<-api.started
	assert.True(t, c.State().Disabled())

	c.SetFields(ContactFields{Name: "Mallory"})
	assert.Equal(t, validFields(), c.Fields(), "inputs are disabled while submitting")

	_, err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(api.release)
	assert.Equal(t, Success, (<-done).Status)
	assert.Equal(t, int32(1), api.calls.Load())
}
