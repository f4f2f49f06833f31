package engine

import (
	"time"

	"github.com/Veraticus/voxport/internal/model"
)

// Report summarizes a conversion run.
type Report struct {
	Diagnostics     map[model.DiagnosticKind]int
	Owner           model.Number
	Documents       int
	Unreadable      int
	Deferred        int
	Skipped         int
	Messages        int
	Calls           int
	Voicemails      int
	NewPairs        int
	Duration        time.Duration
	OwnerUnresolved bool
}

// Events returns the total number of events handed to the sink.
func (r *Report) Events() int {
	return r.Messages + r.Calls + r.Voicemails
}
