package enums

// OrderStatus tracks the lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return contains(validOrderStatuses, s) }

// IsTerminal reports DELIVERED and CANCELLED. Only buyer cancellation looks at
// it; an admin may set any status from any status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", value, validOrderStatuses)
}

// DeliveryType is how the buyer receives an order.
type DeliveryType string

const (
	DeliveryTypePickup   DeliveryType = "PICKUP"
	DeliveryTypeDelivery DeliveryType = "DELIVERY"
)

var validDeliveryTypes = []DeliveryType{DeliveryTypePickup, DeliveryTypeDelivery}

func (t DeliveryType) String() string { return string(t) }

func (t DeliveryType) IsValid() bool { return contains(validDeliveryTypes, t) }

func ParseDeliveryType(value string) (DeliveryType, error) {
	return parse("delivery type", value, validDeliveryTypes)
}
