package engine

import (
	"log/slog"
	"sync"

	"github.com/Veraticus/voxport/internal/model"
)

var diagnosticMessages = map[model.DiagnosticKind]string{
	model.DiagnosticMissingContact:     "Missing contact, add a number for it to the trust file",
	model.DiagnosticConflictingContact: "Conflicting numbers for contact",
	model.DiagnosticUnparsableNumber:   "Unparsable number, keeping it as is",
	model.DiagnosticMissingAttachment:  "Attachment not found, omitting it",
	model.DiagnosticUnresolvedIdentity: "Could not resolve correspondent, skipping messages",
	model.DiagnosticUnreadableDocument: "Could not read document, skipping it",
}

// Diagnostics accumulates recoverable problems. Each distinct diagnostic
// is logged and counted once.
type Diagnostics struct {
	seen  map[model.Diagnostic]struct{}
	items []model.Diagnostic
	mu    sync.Mutex
}

// NewDiagnostics creates an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		seen: make(map[model.Diagnostic]struct{}),
	}
}

// Add records d and reports whether it was new.
func (d *Diagnostics) Add(diag model.Diagnostic) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[diag]; dup {
		return false
	}
	d.seen[diag] = struct{}{}
	d.items = append(d.items, diag)

	// The ledger already warns when it detects a conflict.
	if diag.Kind != model.DiagnosticConflictingContact {
		slog.Warn(diagnosticMessages[diag.Kind],
			"error", diag.Err(),
			"document", diag.Document)
	}
	return true
}

// Items returns every recorded diagnostic in the order they were added.
func (d *Diagnostics) Items() []model.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Counts returns the number of diagnostics per kind. Every kind is present.
func (d *Diagnostics) Counts() map[model.DiagnosticKind]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	counts := make(map[model.DiagnosticKind]int, len(model.DiagnosticKinds))
	for _, kind := range model.DiagnosticKinds {
		counts[kind] = 0
	}
	for _, item := range d.items {
		counts[item.Kind]++
	}
	return counts
}
