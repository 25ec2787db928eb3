// Package notification delivers change request events to Slack via an
// incoming webhook.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/notification"
)

// ErrMissingWebhook indicates no webhook URL was configured.
var ErrMissingWebhook = errors.New("missing Slack webhook URL")

// DefaultFrontendURL is the review UI base used when none is configured.
const DefaultFrontendURL = "http://localhost:3000"

// Config configures the Slack notifier.
type Config struct {
	// WebhookURL is the Slack incoming webhook endpoint.
	WebhookURL string

	// FrontendURL is the review UI base; message buttons link to
	// FrontendURL/preview/{id}. Defaults to DefaultFrontendURL.
	FrontendURL string
}

// SlackNotifier posts change request events to a Slack incoming
// webhook. Delivery is fire-and-forget from the caller's point of
// view; the workflow treats notification errors as advisory.
type SlackNotifier struct {
	webhookURL  string
	frontendURL string
}

// NewSlackNotifier creates a Slack notifier.
func NewSlackNotifier(cfg Config) (*SlackNotifier, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrMissingWebhook
	}

	frontendURL := strings.TrimSuffix(cfg.FrontendURL, "/")
	if frontendURL == "" {
		frontendURL = DefaultFrontendURL
	}

	return &SlackNotifier{
		webhookURL:  cfg.WebhookURL,
		frontendURL: frontendURL,
	}, nil
}

// Notify posts a message for the event.
func (n *SlackNotifier) Notify(ctx context.Context, event notification.Event) error {
	if event.ChangeRequest == nil {
		return fmt.Errorf("slack: event carries no change request")
	}

	var msg *slack.WebhookMessage
	switch event.Type {
	case notification.EventSubmittedForReview:
		msg = n.submittedMessage(event.ChangeRequest)
	case notification.EventReviewerAdded:
		msg = n.reviewerAddedMessage(event.ChangeRequest, event.ReviewerID)
	default:
		return fmt.Errorf("slack: unknown event type %q", event.Type)
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	return nil
}

func (n *SlackNotifier) submittedMessage(cr *changerequest.ChangeRequest) *slack.WebhookMessage {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText("🔔 New Change Request")),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			markdown("*Title:*\n" + cr.Title),
			markdown("*Environment:*\n" + strings.ToUpper(string(cr.Env))),
			markdown("*Created By:*\n" + cr.CreatedBy.ID()),
			markdown("*Status:*\n" + string(cr.Status)),
		}, nil),
	}

	if cr.Description != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			markdown("*Description:*\n"+cr.Description), nil, nil))
	}

	if changes := changeLines(cr); len(changes) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			markdown("*Changes:*\n"+strings.Join(changes, "\n")), nil, nil))
	}

	blocks = append(blocks, n.actionBlock(cr.ID, "View Change Request"))

	return &slack.WebhookMessage{
		Text:   "New Change Request Submitted for Review",
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

func (n *SlackNotifier) reviewerAddedMessage(cr *changerequest.ChangeRequest, reviewerID string) *slack.WebhookMessage {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plainText("👤 Reviewer Added")),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			markdown("*Change Request:*\n" + cr.Title),
			markdown("*Environment:*\n" + strings.ToUpper(string(cr.Env))),
		}, nil),
		slack.NewSectionBlock(
			markdown(fmt.Sprintf("*New Reviewer:*\n<@%s>", reviewerID)), nil, nil),
		n.actionBlock(cr.ID, "Review Now"),
	}

	return &slack.WebhookMessage{
		Text:   "Reviewer Added to Change Request",
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
}

// changeLines renders the parameter change counts, omitting zero rows.
func changeLines(cr *changerequest.ChangeRequest) []string {
	counts := []struct {
		emoji string
		n     int
		label string
	}{
		{"➕", len(cr.Diff.AddedParams), "parameters added"},
		{"✏️", len(cr.Diff.UpdatedParams), "parameters updated"},
		{"➖", len(cr.Diff.RemovedParams), "parameters removed"},
	}

	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		if c.n == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %d %s", c.emoji, c.n, c.label))
	}
	return lines
}

func (n *SlackNotifier) actionBlock(id, label string) *slack.ActionBlock {
	button := slack.NewButtonBlockElement("view_change_request", id, plainText(label))
	button.Style = slack.StylePrimary
	button.URL = fmt.Sprintf("%s/preview/%s", n.frontendURL, id)
	return slack.NewActionBlock("", button)
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

var _ notification.Notifier = (*SlackNotifier)(nil)
