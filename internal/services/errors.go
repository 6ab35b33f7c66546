package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMediaUnreadable   = errors.New("media unreadable")
	ErrExtractionFailed  = errors.New("frame extraction failed")
	ErrGenerationService = errors.New("generation service error")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTimeout           = errors.New("timeout")
)

// Exit codes returned by the CLI for each error kind. Every fatal error maps
// to a non-zero code.
const (
	ExitGeneric          = 1
	ExitConfiguration    = 2
	ExitMediaUnreadable  = 3
	ExitExtractionFailed = 4
	ExitGeneration       = 5
	ExitSchemaInvalid    = 6
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short, stable name for the error kind carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMediaUnreadable):
		return "media_unreadable"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, ErrGenerationService):
		return "generation_service"
	case errors.Is(err, ErrSchemaInvalid):
		return "schema_invalid"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

// ExitCode maps a pipeline error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return ExitConfiguration
	case errors.Is(err, ErrMediaUnreadable):
		return ExitMediaUnreadable
	case errors.Is(err, ErrExtractionFailed):
		return ExitExtractionFailed
	case errors.Is(err, ErrGenerationService):
		return ExitGeneration
	case errors.Is(err, ErrSchemaInvalid):
		return ExitSchemaInvalid
	default:
		return ExitGeneric
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
