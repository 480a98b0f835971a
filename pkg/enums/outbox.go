package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateDelivery OutboxAggregateType = "delivery"
)

var validAggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateDelivery}

func (a OutboxAggregateType) IsValid() bool { return contains(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType is the routing key consumers switch on.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventOrderCancelled        OutboxEventType = "order_cancelled"
	EventDeliveryStatusChanged OutboxEventType = "delivery_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventDeliveryStatusChanged,
}

func (e OutboxEventType) IsValid() bool { return contains(validOutboxEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}
