// Package service defines the interfaces shared between the commands and
// the persistence layer.
package service

import (
	"context"

	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
)

// RunStore defines the contract for the run history.
type RunStore interface {
	// Run operations
	SaveRun(ctx context.Context, run *model.Run, entries []ledger.Entry, diags []model.Diagnostic) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Per-run details
	ListCandidates(ctx context.Context, runID string) ([]ledger.Entry, error)
	ListDiagnostics(ctx context.Context, runID string, kinds ...model.DiagnosticKind) ([]model.Diagnostic, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
