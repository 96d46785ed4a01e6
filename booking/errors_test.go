package booking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"concertbooking/booking"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "conflict",
			err:      booking.NewError(booking.KindConflict, "not enough tickets for tier t1", nil),
			expected: "This action conflicts with another operation. Please try again.",
		},
		{
			name:     "not found",
			err:      booking.NewError(booking.KindNotFound, "", nil),
			expected: "Resource not found.",
		},
		{
			name:     "invalid request keeps the server message",
			err:      booking.NewError(booking.KindInvalidRequest, "Maximum 10 tickets per tier", nil),
			expected: "Maximum 10 tickets per tier",
		},
		{
			name:     "invalid request without message",
			err:      booking.NewError(booking.KindInvalidRequest, "", nil),
			expected: "Invalid request.",
		},
		{
			name:     "transport hides the cause",
			err:      booking.NewError(booking.KindTransport, "", errors.New("dial tcp 10.0.0.1:8080: connect: connection refused")),
			expected: "Network error. Please check your internet connection.",
		},
		{
			name:     "timeout",
			err:      &booking.Error{Kind: booking.KindTransport, Timeout: true, Err: context.DeadlineExceeded},
			expected: "Request timeout. Please check your connection.",
		},
		{
			name:     "unknown",
			err:      booking.NewError(booking.KindUnknown, "", errors.New("status 502")),
			expected: "Something went wrong. Please try again.",
		},
		{
			name:     "foreign error",
			err:      errors.New("boom"),
			expected: "Something went wrong. Please try again.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, booking.UserMessage(tc.err))
		})
	}
}

func TestKindOf_wrapped(t *testing.T) {
	err := fmt.Errorf("creating reservation: %w", booking.NewError(booking.KindConflict, "", nil))

	assert.Equal(t, booking.KindConflict, booking.KindOf(err))
	assert.False(t, booking.Retryable(err))
	assert.True(t, booking.Retryable(booking.NewError(booking.KindTransport, "", nil)))
	assert.False(t, booking.Retryable(nil))
	assert.Equal(t, booking.KindUnknown, booking.KindOf(errors.New("boom")))
}
