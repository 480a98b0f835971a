package enums

// DeliveryStatus mirrors the latest entry of a delivery's status history.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusAssigned  DeliveryStatus = "ASSIGNED"
	DeliveryStatusPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryStatusInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusCancelled DeliveryStatus = "CANCELLED"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusAssigned,
	DeliveryStatusPickedUp,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:   {DeliveryStatusAssigned, DeliveryStatusCancelled},
	DeliveryStatusAssigned:  {DeliveryStatusPickedUp, DeliveryStatusCancelled},
	DeliveryStatusPickedUp:  {DeliveryStatusInTransit, DeliveryStatusDelivered},
	DeliveryStatusInTransit: {DeliveryStatusDelivered},
}

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool { return contains(validDeliveryStatuses, s) }

func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusDelivered || s == DeliveryStatusCancelled
}

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	return contains(deliveryTransitions[s], next)
}

func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	return parse("delivery status", value, validDeliveryStatuses)
}
