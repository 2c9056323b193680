package model

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced inside the typed taxonomy below.
var (
	ErrUnsupportedManifestVersion = errors.New("unsupported manifest version")
	ErrMissingDocumentID          = errors.New("manifest missing document id")
)

// ConfigurationError indicates missing or invalid required configuration.
// Fatal, never retried.
type ConfigurationError struct {
	Stage Stage
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("configuration error (stage %s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err as a ConfigurationError attributed to stage.
func NewConfigurationError(stage Stage, err error) error {
	return &ConfigurationError{Stage: stage, Err: err}
}

// ValidationError indicates the document failed structural rules. Fatal;
// the run aborts before any side-effecting stage executes.
type ValidationError struct {
	Problems []string
	Err      error
}

func (e *ValidationError) Error() string {
	if len(e.Problems) > 0 {
		return fmt.Sprintf("validation failed: %d problem(s): %s", len(e.Problems), e.Problems[0])
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InfrastructureError indicates retry exhaustion or an unexpected
// collaborator failure. Fatal after retries.
type InfrastructureError struct {
	Stage Stage
	Err   error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error (stage %s): %v", e.Stage, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// NewInfrastructureError wraps err as an InfrastructureError attributed to stage.
func NewInfrastructureError(stage Stage, err error) error {
	return &InfrastructureError{Stage: stage, Err: err}
}

// ManifestError indicates corrupt or unreadable persisted state. Surfaced
// distinctly so operators can tell "bad input" from "bad prior state".
type ManifestError struct {
	Location string
	Err      error
}

func (e *ManifestError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("manifest error at %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("manifest error: %v", e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// NewManifestError wraps err as a ManifestError for the given location.
func NewManifestError(location string, err error) error {
	return &ManifestError{Location: location, Err: err}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsManifest reports whether err is a ManifestError.
func IsManifest(err error) bool {
	var me *ManifestError
	return errors.As(err, &me)
}
