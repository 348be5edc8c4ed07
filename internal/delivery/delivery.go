package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/shared/rabbitmq"
)

// Deliverer hands a job's payload off to the notification-sending mechanism.
// It either completes normally (delivered) or returns an error (failed
// attempt, counted against the job's retry budget). No partial-success
// semantics exist.
type Deliverer interface {
	Deliver(ctx context.Context, job *domain.Job) error
}

// Envelope is the wire format handed to the push gateway. Payload fields are
// passed through untouched; only the gateway interprets them.
type Envelope struct {
	JobID              string          `json:"job_id"`
	Title              string          `json:"title"`
	Body               string          `json:"body"`
	Icon               string          `json:"icon,omitempty"`
	Badge              string          `json:"badge,omitempty"`
	Image              string          `json:"image,omitempty"`
	Tag                string          `json:"tag,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
	Actions            json.RawMessage `json:"actions,omitempty"`
	RequireInteraction bool            `json:"require_interaction,omitempty"`
	Silent             bool            `json:"silent,omitempty"`
	Vibrate            json.RawMessage `json:"vibrate,omitempty"`
	Recipients         []string        `json:"recipients,omitempty"`
	Broadcast          bool            `json:"broadcast,omitempty"`
}

// AMQPDeliverer publishes delivery envelopes to the push-gateway exchange.
type AMQPDeliverer struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPDeliverer creates an AMQPDeliverer.
func NewAMQPDeliverer(client *rabbitmq.Client, logger *slog.Logger) *AMQPDeliverer {
	return &AMQPDeliverer{
		client: client,
		logger: logger,
	}
}

// Deliver serializes the job into an envelope and publishes it persistently.
func (d *AMQPDeliverer) Deliver(ctx context.Context, job *domain.Job) error {
	envelope := Envelope{
		JobID:              job.JobID,
		Title:              job.Title,
		Body:               job.Body,
		Icon:               job.Icon,
		Badge:              job.Badge,
		Image:              job.Image,
		Tag:                job.Tag,
		Data:               job.Data,
		Actions:            job.Actions,
		RequireInteraction: job.RequireInteraction,
		Silent:             job.Silent,
		Vibrate:            job.Vibrate,
		Recipients:         job.Recipients,
		Broadcast:          job.Broadcast,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery envelope: %w", err)
	}

	if err := d.client.Publish(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to hand off job %s: %w", job.JobID, err)
	}

	d.logger.Debug("Job handed off to push gateway",
		slog.String("job_id", job.JobID),
		slog.Bool("broadcast", job.Broadcast),
		slog.Int("recipients", len(job.Recipients)),
	)

	return nil
}
