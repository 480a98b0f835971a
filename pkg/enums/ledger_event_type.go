package enums

// LedgerEventType classifies an entry in the order ledger.
type LedgerEventType string

const (
	LedgerEventOrderPlaced    LedgerEventType = "order_placed"
	LedgerEventOrderCancelled LedgerEventType = "order_cancelled"
	LedgerEventOrderPaid      LedgerEventType = "order_paid"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventOrderPlaced,
	LedgerEventOrderCancelled,
	LedgerEventOrderPaid,
}

func (t LedgerEventType) String() string { return string(t) }

func (t LedgerEventType) IsValid() bool { return contains(validLedgerEventTypes, t) }

func ParseLedgerEventType(value string) (LedgerEventType, error) {
	return parse("ledger event type", value, validLedgerEventTypes)
}
