package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
	"github.com/farmlink/farmlink-backend/pkg/outbox/registry"
)

const orderEmailConsumer = "order-emails"

type eventResolver interface {
	ResolveMessage(eventType string, body []byte) (*registry.ResolvedEvent, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Release(ctx context.Context, consumer, eventID string) error
}

// ConsumerParams wires the order email consumer.
type ConsumerParams struct {
	Subscription *pubsub.Subscriber
	Registry     eventResolver
	Idempotency  processedGuard
	Sender       Sender
	FromAddress  string
	Logger       *logger.Logger
}

// Consumer turns order events from the orders subscription into customer emails.
// Delivery is best-effort: everything except an unavailable idempotency store is acked.
type Consumer struct {
	subscription *pubsub.Subscriber
	registry     eventResolver
	idempotency  processedGuard
	sender       Sender
	from         string
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("email sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: params.Subscription,
		registry:     params.Registry,
		idempotency:  params.Idempotency,
		sender:       params.Sender,
		from:         strings.TrimSpace(params.FromAddress),
		logg:         params.Logger,
	}, nil
}

// Run receives until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process handles one message and reports whether it should be redelivered.
func (c *Consumer) process(ctx context.Context, messageID, eventType string, body []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	resolved, err := c.registry.ResolveMessage(eventType, body)
	if err != nil {
		var nonRetryable registry.NonRetryableError
		if errors.As(err, &nonRetryable) {
			c.logg.Warn(logCtx, "dropping undecodable event: "+err.Error())
		} else {
			c.logg.Error(logCtx, "failed to resolve event", err)
		}
		return false
	}

	email, ok, err := c.render(resolved.Payload)
	if err != nil {
		c.logg.Error(logCtx, "failed to render email", err)
		return false
	}
	if !ok {
		c.logg.Debug(logCtx, "event has no email")
		return false
	}

	eventID := resolved.Envelope.EventID
	logCtx = c.logg.WithField(logCtx, "event_id", eventID)
	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	if err := c.sender.Send(ctx, email); err != nil {
		c.logg.Error(logCtx, "email delivery failed", err)
		if relErr := c.idempotency.Release(ctx, orderEmailConsumer, eventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", relErr)
		}
		return false
	}
	c.logg.Info(logCtx, "order email dispatched")
	return false
}

func (c *Consumer) render(payload any) (Email, bool, error) {
	switch p := payload.(type) {
	case *payloads.OrderPlacedEvent:
		email, err := OrderConfirmationEmail(c.from, *p)
		return email, err == nil, err
	case *payloads.OrderCancelledEvent:
		email, err := OrderCancellationEmail(c.from, *p)
		return email, err == nil, err
	default:
		return Email{}, false, nil
	}
}
