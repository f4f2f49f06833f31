package ledger

import (
	"slices"

	"github.com/Veraticus/voxport/internal/model"
)

// ResolveNumber returns the best number for name under policy, following
// alias edges when name has nothing acceptable of its own. hint is the
// number the current document attached to name, if any.
func (l *Ledger) ResolveNumber(name string, hint model.Number, policy Policy) (model.Number, bool) {
	contact := CleanLabel(name)
	if contact == "" {
		return "", false
	}

	l.mu.RLock()
	number, ok := l.resolveLocked(contact, hint, policy)
	l.mu.RUnlock()

	if !ok {
		l.mu.Lock()
		l.missing[contact] = struct{}{}
		l.mu.Unlock()
	}
	return number, ok
}

// Has reports whether name resolves to any number at all, without
// recording a miss.
func (l *Ledger) Has(name string) bool {
	contact := CleanLabel(name)
	if contact == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.resolveLocked(contact, "", Newest)
	return ok
}

func (l *Ledger) resolveLocked(contact model.Contact, hint model.Number, policy Policy) (model.Number, bool) {
	if policy == nil {
		policy = Newest
	}

	visited := make(map[model.Contact]struct{}, 1)
	current := contact
	for range MaxAliasDepth {
		if _, seen := visited[current]; seen {
			return "", false
		}
		visited[current] = struct{}{}

		candidates := l.candidates[current]
		if len(candidates) > 0 || policy == AsIs {
			if number, ok := policy.Select(candidates, hint); ok {
				return number, true
			}
		}

		next, ok := l.aliases[current]
		if !ok {
			return "", false
		}
		current = next
	}
	return "", false
}

// ResolveNames returns every contact that has claimed number, following
// number aliases. It returns nil when nobody has.
func (l *Ledger) ResolveNames(number model.Number) []model.Contact {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[model.Contact]struct{})
	var out []model.Contact
	for _, n := range l.numberChainLocked(number) {
		for contact := range l.reverse[n] {
			if _, dup := seen[contact]; dup {
				continue
			}
			seen[contact] = struct{}{}
			out = append(out, contact)
		}
	}
	slices.Sort(out)
	return out
}

// BestNumberFor maps a number seen in a document onto the number the
// contacts claiming it prefer under policy. Under AsIs it is the identity.
// A number some claimant already prefers is kept as is.
func (l *Ledger) BestNumberFor(number model.Number, policy Policy) model.Number {
	if number == "" || policy == AsIs || policy == nil {
		return number
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	chain := l.numberChainLocked(number)
	target := chain[len(chain)-1]

	var (
		best     model.Number
		bestRank model.Candidate
	)
	for _, contact := range l.claimantsLocked(target) {
		pick, ok := l.resolveLocked(contact, "", policy)
		if !ok {
			continue
		}
		if pick == target {
			return target
		}
		rank := l.candidateLocked(contact, pick)
		if best == "" || rank.Timestamp.After(bestRank.Timestamp) ||
			(rank.Timestamp.Equal(bestRank.Timestamp) && pick < best) {
			best, bestRank = pick, rank
		}
	}

	if best == "" {
		return target
	}
	return best
}

// numberChainLocked returns number followed by every alias it redirects
// to, stopping at a repeat or the depth bound.
func (l *Ledger) numberChainLocked(number model.Number) []model.Number {
	chain := []model.Number{number}
	seen := map[model.Number]struct{}{number: {}}
	current := number
	for range MaxAliasDepth {
		next, ok := l.numberAliases[current]
		if !ok {
			break
		}
		if _, dup := seen[next]; dup {
			break
		}
		seen[next] = struct{}{}
		chain = append(chain, next)
		current = next
	}
	return chain
}

func (l *Ledger) claimantsLocked(number model.Number) []model.Contact {
	out := make([]model.Contact, 0, len(l.reverse[number]))
	for c := range l.reverse[number] {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// candidateLocked finds the candidate entry for number reachable from
// contact, following aliases the same way resolution does.
func (l *Ledger) candidateLocked(contact model.Contact, number model.Number) model.Candidate {
	visited := make(map[model.Contact]struct{})
	current := contact
	for range MaxAliasDepth {
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}
		if i := indexOf(l.candidates[current], number); i >= 0 {
			return l.candidates[current][i]
		}
		next, ok := l.aliases[current]
		if !ok {
			break
		}
		current = next
	}
	return model.Candidate{Number: number}
}
