package notify

import (
	"context"

	"github.com/worklane/backend/internal/logger"
	"github.com/worklane/backend/pkg/webhook"
)

// Notifier delivers out-of-band notifications to users. Failures are the
// notifier's problem: callers never fail a write because a notification
// could not be delivered.
type Notifier interface {
	NotifyTaskAssigned(ctx context.Context, e TaskAssignedEvent) error
	NotifyTaskDueSoon(ctx context.Context, e TaskDueSoonEvent) error
}

// SettingsSource resolves a user's webhook configuration. Implemented by
// the setting service; an interface here keeps notify free of a service
// import cycle.
type SettingsSource interface {
	WebhookFor(userID uint) (url, secret string, enabled bool, err error)
}

// NoopNotifier is used when no webhook delivery is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyTaskAssigned(context.Context, TaskAssignedEvent) error { return nil }
func (NoopNotifier) NotifyTaskDueSoon(context.Context, TaskDueSoonEvent) error   { return nil }

// WebhookNotifier posts events to the recipient's configured webhook.
type WebhookNotifier struct {
	settings SettingsSource
	client   *webhook.Client
}

func NewWebhookNotifier(settings SettingsSource, client *webhook.Client) *WebhookNotifier {
	return &WebhookNotifier{settings: settings, client: client}
}

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func (n *WebhookNotifier) NotifyTaskAssigned(_ context.Context, e TaskAssignedEvent) error {
	return n.deliver(e.AssigneeID, "task_assigned", e)
}

func (n *WebhookNotifier) NotifyTaskDueSoon(_ context.Context, e TaskDueSoonEvent) error {
	return n.deliver(e.AssigneeID, "task_due_soon", e)
}

func (n *WebhookNotifier) deliver(userID uint, event string, data interface{}) error {
	url, secret, enabled, err := n.settings.WebhookFor(userID)
	if err != nil {
		return err
	}
	if !enabled || url == "" {
		return nil
	}
	if err := n.client.Send(url, secret, envelope{Event: event, Data: data}); err != nil {
		logger.L.Warnw("webhook delivery failed", "user_id", userID, "event", event, "error", err)
		return err
	}
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
