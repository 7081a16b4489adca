package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation               = errors.New("validation failed")
	ErrScenarioGenerationFailed = errors.New("failed to generate scenario")
	ErrEvaluationFailed         = errors.New("failed to evaluate session")
	ErrInvalidTransition        = errors.New("invalid session status transition")
	ErrSessionNotFound          = errors.New("session not found")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrFeatureDisabled          = errors.New("feature disabled")
)

// ErrUnknownCategory is a validation failure.
var ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrValidation)
