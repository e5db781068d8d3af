// Package notify turns workflow events into queued notification emails.
// Delivery is asynchronous; a failed enqueue is logged by the caller and
// never fails the originating decision.
package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/atelier-works/atelier/internal/models"
	"github.com/atelier-works/atelier/jobs"
)

// RecipientsPort resolves who should hear about events on a model.
type RecipientsPort interface {
	ModelWatchers(ctx context.Context, event models.DecisionEvent) ([]string, error)
	StatusWatchers(ctx context.Context, event models.StatusEvent) ([]string, error)
}

// Enqueuer implements models.NotifierPort on top of the Asynq queue.
type Enqueuer struct {
	client     *asynq.Client
	recipients RecipientsPort
	from       string
}

// NewEnqueuer constructs an Enqueuer.
func NewEnqueuer(client *asynq.Client, recipients RecipientsPort, from string) *Enqueuer {
	return &Enqueuer{client: client, recipients: recipients, from: from}
}

// DecisionRecorded queues one email per watcher with old/new status and the
// optional comment.
func (e *Enqueuer) DecisionRecorded(ctx context.Context, event models.DecisionEvent) error {
	watchers, err := e.recipients.ModelWatchers(ctx, event)
	if err != nil {
		return fmt.Errorf("notify: resolve recipients: %w", err)
	}

	subject := fmt.Sprintf("[atelier] %s: %s sign-off %s", event.ModelName, event.Track, event.NewStatus)
	body := fmt.Sprintf("Model %q %s track changed from %s to %s.", event.ModelName, event.Track, event.OldStatus, event.NewStatus)
	if event.Comment != nil {
		body += "\n\nComment: " + *event.Comment
	}
	return e.enqueue(ctx, watchers, subject, body)
}

// StatusChanged queues one email per watcher with the lifecycle move.
func (e *Enqueuer) StatusChanged(ctx context.Context, event models.StatusEvent) error {
	watchers, err := e.recipients.StatusWatchers(ctx, event)
	if err != nil {
		return fmt.Errorf("notify: resolve recipients: %w", err)
	}

	subject := fmt.Sprintf("[atelier] %s moved to %s", event.ModelName, event.NewStatus)
	body := fmt.Sprintf("Model %q moved from %s to %s.", event.ModelName, event.OldStatus, event.NewStatus)
	return e.enqueue(ctx, watchers, subject, body)
}

func (e *Enqueuer) enqueue(ctx context.Context, recipients []string, subject, body string) error {
	for _, to := range recipients {
		task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{From: e.from, To: to, Subject: subject, Body: body})
		if err != nil {
			return fmt.Errorf("notify: build task: %w", err)
		}
		if _, err := e.client.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault)); err != nil {
			return fmt.Errorf("notify: enqueue: %w", err)
		}
	}
	return nil
}
