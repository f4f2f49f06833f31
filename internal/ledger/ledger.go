// Package ledger implements the identity ledger: the mapping from contact
// labels to candidate phone numbers and back, with alias edges and the
// resolution policies used to pick one number per contact.
package ledger

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

// MaxAliasDepth bounds every alias chase.
const MaxAliasDepth = 16

// configuredEpoch is the artificial timestamp given to trust file entries
// so they outrank anything observed in a document.
var configuredEpoch = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

// Conflict records a contact observed with a number different from its
// current best one.
type Conflict struct {
	Timestamp time.Time
	Contact   model.Contact
	Previous  model.Number
	Number    model.Number
}

// Ledger maps contacts to numbers. It is safe for concurrent readers, but
// writers are expected to be serialized by the caller so that observations
// are applied in a deterministic order.
type Ledger struct {
	candidates    map[model.Contact][]model.Candidate
	reverse       map[model.Number]map[model.Contact]struct{}
	aliases       map[model.Contact]model.Contact
	numberAliases map[model.Number]model.Number
	missing       map[model.Contact]struct{}
	norm          *phone.Normalizer
	conflicts     []Conflict
	mu            sync.RWMutex
}

// New creates an empty ledger. Trust file values are normalized with n.
func New(n *phone.Normalizer) *Ledger {
	if n == nil {
		n = phone.NewNormalizer("", "")
	}
	return &Ledger{
		candidates:    make(map[model.Contact][]model.Candidate),
		reverse:       make(map[model.Number]map[model.Contact]struct{}),
		aliases:       make(map[model.Contact]model.Contact),
		numberAliases: make(map[model.Number]model.Number),
		missing:       make(map[model.Contact]struct{}),
		norm:          n,
	}
}

// CleanLabel trims and NFC-normalizes a contact label so the same visible
// name from different documents maps to one key.
func CleanLabel(name string) model.Contact {
	return model.Contact(norm.NFC.String(strings.Join(strings.Fields(name), " ")))
}

// Discover records that name was seen with number at ts. It returns true
// only the first time this exact pair is seen. Names that are themselves
// numbers are ignored.
func (l *Ledger) Discover(name string, number model.Number, ts time.Time) bool {
	contact := CleanLabel(name)
	if contact == "" || number == "" || phone.IsNumber(string(contact)) {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.candidates[contact]
	if i := indexOf(existing, number); i >= 0 {
		if !existing[i].IsConfigured() && ts.After(existing[i].Timestamp) {
			existing[i].Timestamp = ts
			sortCandidates(existing)
		}
		return false
	}

	if len(existing) > 0 && existing[0].Number != number {
		conflict := Conflict{
			Contact:   contact,
			Previous:  existing[0].Number,
			Number:    number,
			Timestamp: ts,
		}
		l.conflicts = append(l.conflicts, conflict)
		slog.Warn("Conflicting numbers for contact",
			"contact", contact,
			"previous", conflict.Previous,
			"number", number)
	}

	l.addLocked(contact, model.Candidate{
		Number:     number,
		Timestamp:  ts,
		Provenance: model.ProvenanceDiscovered,
	})
	return true
}

// Configure adds trust file numbers for name, most preferred first.
func (l *Ledger) Configure(name string, numbers ...model.Number) {
	contact := CleanLabel(name)
	if contact == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	offset := 0
	for _, c := range l.candidates[contact] {
		if c.IsConfigured() {
			offset++
		}
	}

	for i, number := range numbers {
		if number == "" {
			continue
		}
		candidate := model.Candidate{
			Number:     number,
			Timestamp:  configuredEpoch.Add(-time.Duration(offset+i) * time.Second),
			Provenance: model.ProvenanceConfigured,
		}
		if j := indexOf(l.candidates[contact], number); j >= 0 {
			l.candidates[contact][j] = candidate
			sortCandidates(l.candidates[contact])
			continue
		}
		l.addLocked(contact, candidate)
	}
}

// AddAlias declares that from should resolve like to.
func (l *Ledger) AddAlias(from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.aliases[CleanLabel(from)] = CleanLabel(to)
}

// AddNumberAlias declares that from should be reported as to.
func (l *Ledger) AddNumberAlias(from, to model.Number) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.numberAliases[from] = to
}

// Candidates returns a copy of name's candidate list, best first.
func (l *Ledger) Candidates(name string) []model.Candidate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.candidates[CleanLabel(name)])
}

// Conflicts returns every conflict recorded so far, in discovery order.
func (l *Ledger) Conflicts() []Conflict {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.conflicts)
}

// Missing returns the contacts that were looked up but could not be
// resolved, sorted by name.
func (l *Ledger) Missing() []model.Contact {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.Contact, 0, len(l.missing))
	for c := range l.missing {
		if _, ok := l.resolveLocked(c, "", Newest); ok {
			continue
		}
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func (l *Ledger) addLocked(contact model.Contact, c model.Candidate) {
	list := append(l.candidates[contact], c)
	sortCandidates(list)
	l.candidates[contact] = list

	names, ok := l.reverse[c.Number]
	if !ok {
		names = make(map[model.Contact]struct{})
		l.reverse[c.Number] = names
	}
	names[contact] = struct{}{}
}

func indexOf(list []model.Candidate, number model.Number) int {
	return slices.IndexFunc(list, func(c model.Candidate) bool {
		return c.Number == number
	})
}

// sortCandidates orders by timestamp descending. Ties prefer configured
// entries and then the lower number so the order never depends on the
// order observations arrived in.
func sortCandidates(list []model.Candidate) {
	slices.SortFunc(list, func(a, b model.Candidate) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		if a.IsConfigured() != b.IsConfigured() {
			if a.IsConfigured() {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Number, b.Number)
	})
}
