package model

import "time"

// Run is the persisted summary of one conversion.
type Run struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	ID              string
	Source          string // export directory
	Policy          string
	Owner           Number
	Documents       int
	Messages        int
	Calls           int
	Voicemails      int
	Skipped         int
	OwnerUnresolved bool
}
