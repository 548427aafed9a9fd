package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks harvester input that failed validation.
	ErrValidation = errors.New("validation error")
	// ErrMisconfiguration marks missing or unusable external configuration.
	// Only deposition and postprocess collaborators raise it; the core never
	// does.
	ErrMisconfiguration = errors.New("misconfiguration")
	// ErrNotFound marks an absent source the plugin depends on.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks a failing subprocess or remote call.
	ErrExternalTool = errors.New("external tool error")
)

// Wrap builds an error message that includes plugin context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, name, operation, message string, err error) error {
	detail := buildDetail(name, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(name, operation, message string) string {
	parts := make([]string, 0, 3)
	if name = strings.TrimSpace(name); name != "" {
		parts = append(parts, name)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "plugin failure"
	}
	return strings.Join(parts, ": ")
}
