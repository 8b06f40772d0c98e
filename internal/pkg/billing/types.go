package billing

// Customer is the processor customer slice this service reads.
type Customer struct {
	ID                     string
	Email                  string
	Name                   string
	DefaultPaymentMethodID string
}

// PaymentMethod is a customer's stored payment instrument.
type PaymentMethod struct {
	ID    string
	Type  string
	Brand string
	Last4 string
}

// Invoice is a one-off metered charge. Status follows the processor's
// lifecycle (draft -> open/paid once finalized).
type Invoice struct {
	ID          string
	CustomerID  string
	AmountCents int64
	Status      string
	HostedURL   string
}

// Receipt describes how a webhook delivery was handled.
type Receipt struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
}
