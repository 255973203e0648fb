package orders

import "fmt"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// validNext is the full transition table; anything not listed is rejected.
// Cancellation is an administrative override from any non-terminal state.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// fulfillmentNext is the single-step path walked by the middleman's
// status-advance endpoint. Pending orders have not been approved yet and
// delivered/cancelled are terminal, so neither appears here.
var fulfillmentNext = map[Status]Status{
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// Next returns the fulfillment step after s, or an error when no advance
// is defined from s.
func Next(s Status) (Status, error) {
	n, ok := fulfillmentNext[s]
	if !ok {
		return "", &InvalidTransitionError{From: s}
	}
	return n, nil
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("no status advance from %q", e.From)
	}
	return fmt.Sprintf("invalid status transition %q -> %q", e.From, e.To)
}
