package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_FullTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded}

	legal := map[Status]map[Status]bool{
		StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
		StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
		StatusProcessing: {StatusShipped: true, StatusCancelled: true},
		StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
		StatusDelivered:  {StatusRefunded: true},
		StatusCancelled:  {},
		StatusRefunded:   {},
	}

	for _, from := range all {
		for _, to := range all {
			want := legal[from][to]
			assert.Equal(t, want, CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusDelivered.IsTerminal())
}

func TestTransitionError_MatchesSentinel(t *testing.T) {
	err := &TransitionError{OrderNumber: "ORD-20260101-0001", From: StatusCancelled, To: StatusConfirmed}
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "CANCELLED -> CONFIRMED")
}
