// Package model defines the core domain models used throughout the application.
package model

import "time"

// Contact is a human-readable label for a correspondent. It is the key the
// ledger resolves numbers by.
type Contact string

// Number is a canonical phone number (E.164 when it could be parsed).
type Number string

// Provenance indicates where a candidate number came from.
type Provenance string

const (
	// ProvenanceConfigured marks candidates loaded from the trust file.
	ProvenanceConfigured Provenance = "configured"
	// ProvenanceDiscovered marks candidates observed in a takeout document.
	ProvenanceDiscovered Provenance = "discovered"
)

// Candidate is one number a contact has been seen or configured with.
type Candidate struct {
	Timestamp  time.Time
	Number     Number
	Provenance Provenance
}

// IsConfigured reports whether the candidate came from the trust file.
func (c Candidate) IsConfigured() bool {
	return c.Provenance == ProvenanceConfigured
}

// Card is an embedded contact card (vCard) in a document.
type Card struct {
	Name   string
	Number string // raw value of the tel: link, may be empty
	Self   bool   // the card describes the account owner
}

// Sighting is a card together with the time of the record it was found in.
type Sighting struct {
	Timestamp time.Time
	Card      Card
}
