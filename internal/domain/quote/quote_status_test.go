package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    QuoteStatus
		to      QuoteStatus
		allowed bool
	}{
		{StatusEditing, StatusResolvingDistance, true},
		{StatusEditing, StatusSubmitting, true},
		{StatusEditing, StatusWithdrawn, true},
		{StatusEditing, StatusSubmitted, false},
		{StatusResolvingDistance, StatusEditing, true},
		{StatusResolvingDistance, StatusSubmitting, false},
		{StatusSubmitting, StatusSubmitted, true},
		{StatusSubmitting, StatusEditing, true},
		{StatusSubmitting, StatusWithdrawn, false},
		{StatusSubmitted, StatusAccepted, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusWithdrawn, true},
		{StatusSubmitted, StatusSuperseded, true},
		{StatusSubmitted, StatusEditing, false},
		{StatusRejected, StatusSuperseded, true},
		{StatusRejected, StatusEditing, false},
		{StatusAccepted, StatusSuperseded, false},
		{StatusWithdrawn, StatusEditing, false},
		{StatusSuperseded, StatusSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestQuoteStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusWithdrawn.IsTerminal())
	assert.True(t, StatusSuperseded.IsTerminal())
	assert.False(t, StatusEditing.IsTerminal())
	assert.False(t, StatusSubmitted.IsTerminal())
	assert.False(t, StatusRejected.IsTerminal())
}

func TestParseQuoteStatus(t *testing.T) {
	status, err := ParseQuoteStatus("editing")
	require.NoError(t, err)
	assert.Equal(t, StatusEditing, status)

	_, err = ParseQuoteStatus("draft")
	assert.Error(t, err)
}
