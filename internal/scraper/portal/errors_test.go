package portal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"credentials", &ScraperError{Portal: PortalChukotnet, Operation: "Login", Cause: ErrInvalidCredentials}, MessageInvalidCredentials},
		{"session", fmt.Errorf("stats: %w", ErrNotAuthenticated), MessageNotAuthenticated},
		{"transport", fmt.Errorf("%w: dial tcp", ErrTransport), MessageTransport},
		{"timeout", ErrTimeout, MessageTransport},
		{"payment form", ErrPaymentFormNotFound, MessagePaymentFormMissing},
		{"stale quote", ErrQuoteNotVerified, MessageQuoteNotVerified},
		{"other", errors.New("boom"), MessageUnknown + "boom"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, UserMessage(tc.err))
		})
	}
}

func TestScraperError_Unwrap(t *testing.T) {
	err := &ScraperError{Portal: PortalChukotnet, Operation: "News", Cause: ErrTransport, Details: "GET /"}

	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "[CHUKOTNET] News failed: portal unreachable - GET /", err.Error())
}
