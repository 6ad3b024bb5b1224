package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks submissions rejected before they enter the queue.
	ErrValidation = errors.New("validation error")
	// ErrConversion marks media re-encode or transcode failures.
	ErrConversion = errors.New("conversion error")
	// ErrPublish marks failures raised by the external platform client.
	ErrPublish = errors.New("publish error")
	// ErrPersistence marks queue store write failures.
	ErrPersistence = errors.New("persistence error")
	// ErrAcknowledgment marks chat-side acknowledgment delivery failures.
	ErrAcknowledgment = errors.New("acknowledgment error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = errors.New("service failure")
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
