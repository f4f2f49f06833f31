package ledger

import (
	"slices"

	"github.com/Veraticus/voxport/internal/model"
)

// Entry is one contact in a ledger dump.
type Entry struct {
	Contact    model.Contact
	AliasOf    model.Contact
	Candidates []model.Candidate
}

// Snapshot returns a deterministic dump of the ledger sorted by contact.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	contacts := make([]model.Contact, 0, len(l.candidates)+len(l.aliases))
	for c := range l.candidates {
		contacts = append(contacts, c)
	}
	for c := range l.aliases {
		if _, ok := l.candidates[c]; !ok {
			contacts = append(contacts, c)
		}
	}
	slices.Sort(contacts)

	out := make([]Entry, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, Entry{
			Contact:    c,
			AliasOf:    l.aliases[c],
			Candidates: slices.Clone(l.candidates[c]),
		})
	}
	return out
}

// NumberAliases returns a copy of the number redirections.
func (l *Ledger) NumberAliases() map[model.Number]model.Number {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[model.Number]model.Number, len(l.numberAliases))
	for k, v := range l.numberAliases {
		out[k] = v
	}
	return out
}
