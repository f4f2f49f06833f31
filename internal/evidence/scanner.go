package evidence

import (
	"slices"

	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

// Source names where a document's correspondent came from, in decreasing
// order of reliability.
type Source int

// Correspondent sources, in fallback order.
const (
	SourceCard Source = iota
	SourceTitleNumber
	SourceTitleName
	SourceFilenameNumber
	SourceFilenameName
	SourceSentinel
)

func (s Source) String() string {
	switch s {
	case SourceCard:
		return "card"
	case SourceTitleNumber:
		return "title-number"
	case SourceTitleName:
		return "title-name"
	case SourceFilenameNumber:
		return "filename-number"
	case SourceFilenameName:
		return "filename-name"
	default:
		return "sentinel"
	}
}

// Context is the evidence gathered for one document.
type Context struct {
	Doc        *model.Document
	Filename   Ref
	Title      Ref
	OtherParty *model.Card
}

// Names returns the contact names the document's title and filename refer
// to.
func (c Context) Names() []string {
	var names []string
	if c.Title.Name != "" {
		names = append(names, c.Title.Name)
	}
	if c.Filename.Name != "" && c.Filename.Name != c.Title.Name {
		names = append(names, c.Filename.Name)
	}
	return names
}

// Observation summarizes feeding a document's cards into the ledger.
type Observation struct {
	Unparsable []string
	NewPairs   int
}

// Correspondent is the resolved other party of a document.
type Correspondent struct {
	Number     model.Number
	Source     Source
	Unresolved []string // names that could not be resolved on the way
	Unparsable []string // raw numbers that could not be parsed on the way
}

// Resolved reports whether evidence other than the sentinel was found.
func (c Correspondent) Resolved() bool {
	return c.Source != SourceSentinel
}

// Scanner extracts evidence from documents against an explicit ledger.
type Scanner struct {
	ledger *ledger.Ledger
	norm   *phone.Normalizer
	policy ledger.Policy
	owner  string
}

// NewScanner creates a scanner. owner is the contact label the account
// owner's own cards are recorded under.
func NewScanner(l *ledger.Ledger, n *phone.Normalizer, policy ledger.Policy, owner string) *Scanner {
	if policy == nil {
		policy = ledger.Newest
	}
	return &Scanner{
		ledger: l,
		norm:   n,
		policy: policy,
		owner:  owner,
	}
}

// Scan collects the title and filename evidence and the document's first
// non-owner card. It does not touch the ledger.
func (s *Scanner) Scan(doc *model.Document) Context {
	ctx := Context{
		Doc:      doc,
		Filename: FromFilename(doc.Filename()),
		Title:    FromTitle(doc.Title),
	}
	for _, sighting := range doc.Sightings() {
		card := sighting.Card
		if s.isSelf(card) || card.Number == "" {
			continue
		}
		if res := s.norm.Normalize(card.Number); res.OK {
			card.Number = string(res.Number)
			ctx.OtherParty = &card
			break
		}
	}
	return ctx
}

// Observe feeds every card in sightings into the ledger.
func (s *Scanner) Observe(sightings []model.Sighting) Observation {
	var obs Observation
	for _, sighting := range sightings {
		card := sighting.Card
		if card.Number == "" {
			continue
		}

		res := s.norm.Normalize(card.Number)
		if !res.OK {
			obs.Unparsable = append(obs.Unparsable, res.Raw)
			continue
		}

		self := s.isSelf(card)
		name := card.Name
		if self {
			name = s.owner
		}
		if s.ledger.Discover(name, res.Number, sighting.Timestamp) {
			obs.NewPairs++
		}
	}
	return obs
}

// Correspondent determines the document's other party using the fixed
// fallback order: card, title number, title name, filename number,
// filename name, sentinel.
func (s *Scanner) Correspondent(ctx Context) Correspondent {
	var out Correspondent

	if ctx.OtherParty != nil {
		if n, ok := s.ResolveCard(*ctx.OtherParty); ok {
			out.Number, out.Source = n, SourceCard
			return out
		}
	}

	steps := []struct {
		ref    Ref
		number Source
		name   Source
	}{
		{ctx.Title, SourceTitleNumber, SourceTitleName},
		{ctx.Filename, SourceFilenameNumber, SourceFilenameName},
	}
	for _, step := range steps {
		if step.ref.Number != "" {
			res := s.norm.Normalize(step.ref.Number)
			if res.OK {
				out.Number, out.Source = s.ledger.BestNumberFor(res.Number, s.policy), step.number
				return out
			}
			out.Unparsable = append(out.Unparsable, res.Raw)
		}
		if step.ref.Name != "" && !slices.Contains(out.Unresolved, step.ref.Name) {
			if n, ok := s.ledger.ResolveNumber(step.ref.Name, "", s.policy); ok {
				out.Number, out.Source = n, step.name
				return out
			}
			out.Unresolved = append(out.Unresolved, step.ref.Name)
		}
	}

	out.Number, out.Source = s.norm.Bogus(), SourceSentinel
	return out
}

// ResolveCard picks the number to report for a card: the policy's choice
// for the card's name with the card's number as hint, else the best
// number for the card's own number.
func (s *Scanner) ResolveCard(card model.Card) (model.Number, bool) {
	res := s.norm.Normalize(card.Number)
	if card.Name != "" && !phone.IsNumber(card.Name) && !s.isSelf(card) {
		if n, ok := s.ledger.ResolveNumber(card.Name, res.Number, s.policy); ok {
			return n, true
		}
	}
	if !res.OK {
		return "", false
	}
	return s.ledger.BestNumberFor(res.Number, s.policy), true
}

// Owner resolves the account owner's number.
func (s *Scanner) Owner() (model.Number, bool) {
	if !s.ledger.Has(s.owner) {
		return "", false
	}
	return s.ledger.ResolveNumber(s.owner, "", s.policy)
}

// Defer reports whether a message-bearing document has to wait for the
// whole export to be observed before it can be converted.
func (s *Scanner) Defer(ctx Context) bool {
	if !ctx.Doc.BearsMessages() {
		return false
	}
	if _, ok := s.Owner(); !ok {
		return true
	}
	for _, name := range ctx.Names() {
		if !s.ledger.Has(name) {
			return true
		}
	}
	return false
}

// OwnerLabel returns the contact label of the account owner.
func (s *Scanner) OwnerLabel() string {
	return s.owner
}

// IsOwner reports whether card belongs to the account owner.
func (s *Scanner) IsOwner(card model.Card) bool {
	return s.isSelf(card)
}

func (s *Scanner) isSelf(card model.Card) bool {
	return card.Self || (card.Name != "" && ledger.CleanLabel(card.Name) == ledger.CleanLabel(s.owner))
}
