package portal

import (
	"errors"
	"fmt"
)

var (
	ErrTransport          = errors.New("portal unreachable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")

	ErrParsingFailed       = errors.New("failed to parse portal response")
	ErrPaymentFormNotFound = errors.New("payment form not found")
	ErrQuoteNotVerified    = errors.New("payment quote not verified")
	ErrTimeout             = errors.New("operation timed out")
)

// User-facing messages, one per error category.
const (
	MessageTransport          = "Ошибка соединения. Проверьте подключение к интернету."
	MessageInvalidCredentials = "Ошибка входа. Проверьте логин/пароль."
	MessageNotAuthenticated   = "Сначала войдите в кабинет!"
	MessagePaymentFormMissing = "Ошибка: форма оплаты не найдена"
	MessageQuoteNotVerified   = "Сначала проверьте данные платежа."
	MessageUnknown            = "Ошибка: "
)

// ScraperError provides detailed error context
type ScraperError struct {
	Portal    PortalCode
	Operation string
	Cause     error
	Details   string
}

func (e *ScraperError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("[%s] %s failed: %v", e.Portal, e.Operation, e.Cause)
	}
	return fmt.Sprintf("[%s] %s failed: %v - %s", e.Portal, e.Operation, e.Cause, e.Details)
}

func (e *ScraperError) Unwrap() error {
	return e.Cause
}

// UserMessage maps an error to the message shown on the interactive surface.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return MessageInvalidCredentials
	case errors.Is(err, ErrNotAuthenticated):
		return MessageNotAuthenticated
	case errors.Is(err, ErrPaymentFormNotFound):
		return MessagePaymentFormMissing
	case errors.Is(err, ErrQuoteNotVerified):
		return MessageQuoteNotVerified
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout):
		return MessageTransport
	default:
		return MessageUnknown + err.Error()
	}
}
