package notification

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMalformedInput = errors.New("notification: malformed input")
	ErrDelivery       = errors.New("notification: delivery failed")
	ErrInvalidConfig  = errors.New("notification: invalid config")
	ErrUnknownSender  = errors.New("notification: unknown sender")
	ErrUnknownKind    = errors.New("notification: unknown kind")
)

// ValidationError reports which fields of a record failed validation.
type ValidationError struct {
	Kind   Kind
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("invalid %s notification: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrMalformedInput
}

// DeliveryError wraps a failure returned by the email provider.
type DeliveryError struct {
	Recipient string
	Subject   string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver %q to %s: %v", e.Subject, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDelivery
}
