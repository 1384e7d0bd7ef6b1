package quote

import "fmt"

// QuoteStatus represents the current state of a quote in its composition and
// submission lifecycle.
type QuoteStatus string

const (
	StatusEditing           QuoteStatus = "editing"
	StatusResolvingDistance QuoteStatus = "resolving_distance"
	StatusSubmitting        QuoteStatus = "submitting"
	StatusSubmitted         QuoteStatus = "submitted"
	StatusAccepted          QuoteStatus = "accepted"
	StatusRejected          QuoteStatus = "rejected"
	StatusWithdrawn         QuoteStatus = "withdrawn"
	StatusSuperseded        QuoteStatus = "superseded"
)

// validTransitions defines the state machine for quote status transitions.
// A failed submission returns to editing; it never reaches submitted.
var validTransitions = map[QuoteStatus][]QuoteStatus{
	StatusEditing:           {StatusResolvingDistance, StatusSubmitting, StatusWithdrawn},
	StatusResolvingDistance: {StatusEditing},
	StatusSubmitting:        {StatusSubmitted, StatusEditing},
	StatusSubmitted:         {StatusAccepted, StatusRejected, StatusWithdrawn, StatusSuperseded},
	StatusAccepted:          {},
	StatusRejected:          {StatusSuperseded},
	StatusWithdrawn:         {},
	StatusSuperseded:        {},
}

// IsValid returns true if the status is a recognized quote status.
func (s QuoteStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s QuoteStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// String returns the string representation of the status.
func (s QuoteStatus) String() string {
	return string(s)
}

// ParseQuoteStatus converts a string to a QuoteStatus, returning an error if invalid.
func ParseQuoteStatus(s string) (QuoteStatus, error) {
	status := QuoteStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid quote status: %s", s)
	}
	return status, nil
}
