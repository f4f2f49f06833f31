// Package storage persists conversion runs in SQLite so that ledgers and
// diagnostics can be compared across runs over the same export.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/voxport/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrInvalidRun        = errors.New("invalid run")
	ErrInvalidDiagnostic = errors.New("invalid diagnostic")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateRun(run *model.Run) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Source) == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Policy) == "" {
		return fmt.Errorf("%w: missing policy", ErrInvalidRun)
	}
	return nil
}

func validateDiagnostic(d *model.Diagnostic) error {
	if !slices.Contains(model.DiagnosticKinds, d.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDiagnostic, d.Kind)
	}
	if strings.TrimSpace(d.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidDiagnostic)
	}
	return nil
}
