package form

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/siteharvester/gateway/client"
	"github.com/siteharvester/gateway/log"
)

const (
	MsgContactSuccess = "Thank you! Your message has been sent."
	MsgFillField      = "Please fill out this field."
	MsgCheckBox       = "Please check this box if you want to proceed."
	MsgInvalidEmail   = "Please enter a valid email address."
)

// ContactSender submits the contact form.
type ContactSender interface {
	Contact(ctx context.Context, req client.ContactRequest) (json.RawMessage, error)
}

// ContactFields are the inputs of the contact form.
type ContactFields = client.ContactRequest

// Contact is the controller behind the contact form. Unlike Harvest, its success message
// stays until the next submission.
type Contact struct {
	*machine

	log zerolog.Logger
	api ContactSender

	fields ContactFields
}

func NewContact(api ContactSender) *Contact {
	return &Contact{
		machine: newMachine(),
		log:     log.NewLogger("contact-form"),
		api:     api,
	}
}

// SetFields replaces the inputs. Edits are ignored while the form is disabled.
func (c *Contact) SetFields(f ContactFields) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != Submitting {
		c.fields = f
	}
}

// Fields returns the current inputs.
func (c *Contact) Fields() ContactFields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

func (c *Contact) State() State {
	return c.snapshot()
}

func (c *Contact) Subscribe() (<-chan State, func()) {
	return c.subscribe()
}

func (c *Contact) Close() {
	c.close()
}

// Submit validates the fields, sends them, and returns the settled state. It is rejected
// with ErrBusy while another submission is in flight.
func (c *Contact) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Status == Submitting {
		c.mu.Unlock()
		return State{}, ErrBusy
	}

	fields := c.fields
	if err := validateContact(fields); err != nil {
		defer c.mu.Unlock()
		c.set(State{Status: Error, Err: message(err)})
		return c.state, nil
	}

	c.set(State{Status: Submitting})
	c.mu.Unlock()

	_, err := c.api.Contact(ctx, fields)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.log.Error().Err(err).Msg("Contact submission failed")
		c.set(State{Status: Error, Err: message(err)})
		return c.state, nil
	}

	c.fields = ContactFields{}
	c.set(State{Status: Success, Success: MsgContactSuccess})
	return c.state, nil
}

// validateContact applies the native required and e-mail constraints, in field order.
func validateContact(f ContactFields) error {
	if f.Name == "" {
		return &ValidationError{Field: "name", Message: MsgFillField}
	}
	if f.Email == "" {
		return &ValidationError{Field: "email", Message: MsgFillField}
	}
	if !ValidEmail(f.Email) {
		return &ValidationError{Field: "email", Message: MsgInvalidEmail}
	}
	if f.Message == "" {
		return &ValidationError{Field: "message", Message: MsgFillField}
	}
	if !f.Subscribe {
		return &ValidationError{Field: "subscribe", Message: MsgCheckBox}
	}
	return nil
}
