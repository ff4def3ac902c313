package helpers

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type PriceRelayError struct {
	Message string
	Cause   error
}

func (e *PriceRelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PriceRelayError) Unwrap() error {
	return e.Cause
}

// Distinct error kinds for errors.As classification
type ConfigurationError struct{ PriceRelayError }
type TransportError struct{ PriceRelayError }
type PayloadError struct{ PriceRelayError }
type StorageError struct{ PriceRelayError }
type PublishError struct{ PriceRelayError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{PriceRelayError{Message: msg, Cause: cause}}
}

func NewTransportError(msg string, cause error) error {
	return &TransportError{PriceRelayError{Message: msg, Cause: cause}}
}

func NewPayloadError(msg string, cause error) error {
	return &PayloadError{PriceRelayError{Message: msg, Cause: cause}}
}

func NewStorageError(msg string, cause error) error {
	return &StorageError{PriceRelayError{Message: msg, Cause: cause}}
}

func NewPublishError(msg string, cause error) error {
	return &PublishError{PriceRelayError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsPayload reports whether err is (or wraps) a PayloadError.
func IsPayload(err error) bool {
	var pe *PayloadError
	return errors.As(err, &pe)
}
