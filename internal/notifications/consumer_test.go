package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
	"github.com/farmlink/farmlink-backend/pkg/outbox/payloads"
	"github.com/farmlink/farmlink-backend/pkg/outbox/registry"
)

type memoryGuard struct {
	seen     map[string]bool
	err      error
	released []string
}

func (g *memoryGuard) CheckAndMarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	key := consumer + ":" + eventID
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *memoryGuard) Release(_ context.Context, consumer, eventID string) error {
	delete(g.seen, consumer+":"+eventID)
	g.released = append(g.released, eventID)
	return nil
}

type recordingSender struct {
	sent []Email
	err  error
}

func (s *recordingSender) Send(_ context.Context, email Email) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

func newTestConsumer(t *testing.T) (*Consumer, *memoryGuard, *recordingSender) {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.NoError(t, err)
	guard := &memoryGuard{seen: map[string]bool{}}
	sender := &recordingSender{}
	return &Consumer{
		registry:    reg,
		idempotency: guard,
		sender:      sender,
		from:        "orders@farmlink.test",
		logg:        logger.Nop(),
	}, guard, sender
}

func envelope(t *testing.T, eventID string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    eventID,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return body
}

func placedEvent() payloads.OrderPlacedEvent {
	return payloads.OrderPlacedEvent{
		OrderID:      uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000001"),
		CustomerID:   uuid.New(),
		ContactName:  "Ada",
		ContactEmail: "ada@farm.test",
		DeliveryType: enums.DeliveryTypeDelivery,
		Subtotal:     decimal.NewFromInt(1000),
		DeliveryFee:  decimal.NewFromInt(500),
		Total:        decimal.NewFromInt(1500),
		Lines: []payloads.OrderLine{{
			Title:     "Cassava",
			Quantity:  decimal.NewFromInt(20),
			Unit:      "kg",
			UnitPrice: decimal.NewFromInt(50),
			LineTotal: decimal.NewFromInt(1000),
		}},
	}
}

func TestConsumerSendsConfirmationOnce(t *testing.T) {
	consumer, _, sender := newTestConsumer(t)
	body := envelope(t, "evt-1", placedEvent())

	require.False(t, consumer.process(context.Background(), "m-1", string(enums.EventOrderPlaced), body))
	require.False(t, consumer.process(context.Background(), "m-2", string(enums.EventOrderPlaced), body))

	require.Len(t, sender.sent, 1)
	email := sender.sent[0]
	require.Equal(t, "ada@farm.test", email.To)
	require.Equal(t, "Order #3F2A9C1E confirmed", email.Subject)
	require.Contains(t, email.Body, "Cassava: 20 kg x 50 = 1000")
	require.Contains(t, email.Body, "Total: 1500")
	require.Contains(t, email.Body, "driver")
}

func TestConsumerSendsCancellation(t *testing.T) {
	consumer, _, sender := newTestConsumer(t)
	body := envelope(t, "evt-2", payloads.OrderCancelledEvent{
		OrderID:      uuid.New(),
		ContactName:  "Ada",
		ContactEmail: "ada@farm.test",
		Total:        decimal.NewFromInt(500),
		CancelledAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	require.False(t, consumer.process(context.Background(), "m-1", string(enums.EventOrderCancelled), body))
	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].Body, "1 Mar 2026 10:00 UTC")
}

func TestConsumerAcksUndecodableAndSilentEvents(t *testing.T) {
	consumer, _, sender := newTestConsumer(t)

	require.False(t, consumer.process(context.Background(), "m-1", "order_refunded", []byte(`{}`)))
	require.False(t, consumer.process(context.Background(), "m-2", string(enums.EventOrderPlaced), []byte(`not json`)))
	status := envelope(t, "evt-3", payloads.OrderStatusChangedEvent{OrderID: uuid.New(), Status: enums.OrderStatusPaid})
	require.False(t, consumer.process(context.Background(), "m-3", string(enums.EventOrderStatusChanged), status))
	require.Empty(t, sender.sent)
}

func TestConsumerNacksWhenGuardUnavailable(t *testing.T) {
	consumer, guard, sender := newTestConsumer(t)
	guard.err = errors.New("redis down")

	require.True(t, consumer.process(context.Background(), "m-1", string(enums.EventOrderPlaced), envelope(t, "evt-4", placedEvent())))
	require.Empty(t, sender.sent)
}

func TestConsumerReleasesClaimWhenSendFails(t *testing.T) {
	consumer, guard, sender := newTestConsumer(t)
	sender.err = errors.New("smtp timeout")

	require.False(t, consumer.process(context.Background(), "m-1", string(enums.EventOrderPlaced), envelope(t, "evt-5", placedEvent())))
	require.Equal(t, []string{"evt-5"}, guard.released)
}

func TestLogSender(t *testing.T) {
	buf := &bytes.Buffer{}
	sender := NewLogSender(logger.New(logger.Options{ServiceName: "test", Output: buf}))

	require.Error(t, sender.Send(context.Background(), Email{}))
	require.NoError(t, sender.Send(context.Background(), Email{To: "ada@farm.test", Subject: "hi", Body: "body"}))
	require.Contains(t, buf.String(), `"email_to":"ada@farm.test"`)
}
