package model

import (
	"fmt"

	"github.com/Veraticus/voxport/internal/common"
)

// DiagnosticKind categorizes a recoverable problem found during a run.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagnosticMissingContact     DiagnosticKind = "missing_contact"
	DiagnosticConflictingContact DiagnosticKind = "conflicting_contact"
	DiagnosticUnparsableNumber   DiagnosticKind = "unparsable_number"
	DiagnosticMissingAttachment  DiagnosticKind = "missing_attachment"
	DiagnosticUnresolvedIdentity DiagnosticKind = "unresolved_identity"
	DiagnosticUnreadableDocument DiagnosticKind = "unreadable_document"
)

// DiagnosticKinds lists every kind in report order.
var DiagnosticKinds = []DiagnosticKind{
	DiagnosticMissingContact,
	DiagnosticConflictingContact,
	DiagnosticUnparsableNumber,
	DiagnosticMissingAttachment,
	DiagnosticUnresolvedIdentity,
	DiagnosticUnreadableDocument,
}

// Diagnostic is one human-readable problem report.
type Diagnostic struct {
	Kind     DiagnosticKind
	Subject  string
	Detail   string
	Document string
}

var diagnosticErrors = map[DiagnosticKind]error{
	DiagnosticMissingContact:     common.ErrUnresolvedIdentity,
	DiagnosticConflictingContact: common.ErrConflictingEvidence,
	DiagnosticUnparsableNumber:   common.ErrUnparsableNumber,
	DiagnosticMissingAttachment:  common.ErrAttachmentNotFound,
	DiagnosticUnresolvedIdentity: common.ErrUnresolvedIdentity,
	DiagnosticUnreadableDocument: common.ErrUnreadableDocument,
}

// Err returns the diagnostic as an error wrapping the sentinel for its
// kind, so callers can match categories with errors.Is.
func (d Diagnostic) Err() error {
	sentinel, ok := diagnosticErrors[d.Kind]
	if !ok {
		return fmt.Errorf("%s: %s", d.Kind, d.Subject)
	}
	if d.Detail == "" {
		return fmt.Errorf("%w: %s", sentinel, d.Subject)
	}
	return fmt.Errorf("%w: %s: %s", sentinel, d.Subject, d.Detail)
}
