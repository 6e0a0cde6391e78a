package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/siteharvester/gateway/log"
)

// maxMessageLen bounds the contact message quoted in a notification.
const maxMessageLen = 2000

// Submission is the part of a contact form announced to the team.
type Submission struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Subscribe bool   `json:"subscribe"`
}

// Notifier announces contact submissions.
type Notifier interface {
	NotifyContact(ctx context.Context, s Submission) error
}

// WebhookNotifier posts to a Slack incoming webhook.
type WebhookNotifier struct {
	log     zerolog.Logger
	webhook string
}

func NewWebhookNotifier(webhook string) *WebhookNotifier {
	return &WebhookNotifier{
		log:     log.NewLogger("slack"),
		webhook: webhook,
	}
}

func (n *WebhookNotifier) NotifyContact(ctx context.Context, s Submission) error {
	msg := &slack.WebhookMessage{
		Text:   fmt.Sprintf("New contact message from %s", displayName(s)),
		Blocks: &slack.Blocks{BlockSet: contactBlocks(s)},
	}

	if err := slack.PostWebhookContext(ctx, n.webhook, msg); err != nil {
		return errors.Wrap(err, "failed to post contact notification")
	}

	n.log.Debug().Str("email", s.Email).Msg("Contact notification posted")
	return nil
}

func contactBlocks(s Submission) []slack.Block {
	subscribe := "no"
	if s.Subscribe {
		subscribe = "yes"
	}

	header := slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*New contact message* from %s", displayName(s)), false, false)
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Email*\n"+s.Email, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Subscribe*\n"+subscribe, false, false),
	}

	message := slack.NewTextBlockObject(slack.MarkdownType, quote(truncate(s.Message, maxMessageLen)), false, false)

	return []slack.Block{
		slack.NewSectionBlock(header, fields, nil),
		slack.NewSectionBlock(message, nil, nil),
	}
}

func displayName(s Submission) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return s.Email
}

func quote(text string) string {
	if text == "" {
		return "> _(empty)_"
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
