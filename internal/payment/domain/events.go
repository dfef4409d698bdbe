package domain

type EventType string

const EventCheckoutCompleted EventType = "checkout.session.completed"

// Event is a processor notification whose signature has already been checked.
// Session fields are only populated for checkout events.
type Event struct {
	ID          string
	Type        EventType
	SessionID   string
	Metadata    map[string]string
	AmountTotal int64
}

func (e Event) OrderID() string {
	return e.Metadata[MetadataOrderID]
}
