// Package evidence extracts correspondent evidence from takeout documents
// and feeds contact cards into the identity ledger.
package evidence

import (
	"regexp"
	"strings"

	"github.com/Veraticus/voxport/internal/phone"
)

var (
	leadingNumber = regexp.MustCompile(`^\+?[0-9]{3,}`)
	leadingLabel  = regexp.MustCompile(`^([^\s-].*?)\s+-\s+`)
)

// Labels that name no correspondent.
var anonymousLabels = map[string]struct{}{
	"group conversation": {},
	"me":                 {},
	"unknown":            {},
}

// Ref is the correspondent evidence found in one source. At most one of
// Number and Name is set.
type Ref struct {
	Number string
	Name   string
}

// Empty reports whether the source named nobody.
func (r Ref) Empty() bool {
	return r.Number == "" && r.Name == ""
}

// FromFilename classifies the leading token of a document's base name,
// e.g. "+15551234567 - Text - 2020-01-01T00_00_00Z" or "Jane Doe - Missed - ...".
func FromFilename(name string) Ref {
	name = strings.TrimSpace(name)
	if m := leadingNumber.FindString(name); m != "" {
		return Ref{Number: m}
	}
	if m := leadingLabel.FindStringSubmatch(name); m != nil {
		return named(m[1])
	}
	return Ref{}
}

// FromTitle classifies the last line of a document's title.
func FromTitle(title string) Ref {
	lines := strings.Split(strings.TrimSpace(title), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return Ref{}
	}
	if phone.IsNumber(last) {
		return Ref{Number: last}
	}
	return named(last)
}

func named(label string) Ref {
	label = strings.TrimSpace(label)
	if _, ok := anonymousLabels[strings.ToLower(label)]; ok || label == "" {
		return Ref{}
	}
	if phone.IsNumber(label) {
		return Ref{Number: label}
	}
	return Ref{Name: label}
}
