// Package phone canonicalizes phone numbers found in takeout documents.
package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/Veraticus/voxport/internal/model"
)

// DefaultBogusNumber is substituted when a record carries no usable number.
const DefaultBogusNumber model.Number = "+15550000000"

// DefaultRegion is used to parse numbers written without a country code.
const DefaultRegion = "US"

// Short codes and service numbers are kept verbatim below this many digits.
const minCanonicalDigits = 7

var numberPattern = regexp.MustCompile(`^\+?\(?[0-9][0-9 ().\-]*$`)

// Result is the outcome of normalizing a raw number. When OK is false the
// input could not be parsed and Number is empty; Raw always holds the
// trimmed input.
type Result struct {
	Number model.Number
	Raw    string
	OK     bool
}

// Unparsable reports whether a non-empty value failed to parse.
func (r Result) Unparsable() bool {
	return !r.OK && r.Raw != ""
}

// OrRaw returns the canonical number, or the raw input as a best effort
// when it could not be parsed.
func (r Result) OrRaw() model.Number {
	if r.OK {
		return r.Number
	}
	return model.Number(r.Raw)
}

// Normalizer converts raw numbering-plan strings into E.164.
type Normalizer struct {
	region string
	bogus  model.Number
}

// NewNormalizer creates a normalizer for the given default region. Empty
// arguments fall back to DefaultRegion and DefaultBogusNumber.
func NewNormalizer(region string, bogus model.Number) *Normalizer {
	if region == "" {
		region = DefaultRegion
	}
	if bogus == "" {
		bogus = DefaultBogusNumber
	}
	return &Normalizer{
		region: strings.ToUpper(region),
		bogus:  bogus,
	}
}

// Bogus returns the sentinel number.
func (n *Normalizer) Bogus() model.Number {
	return n.bogus
}

// Normalize parses raw and returns its canonical form. It never fails
// loudly: malformed input comes back with OK unset.
func (n *Normalizer) Normalize(raw string) Result {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "tel:"))
	res := Result{Raw: raw}
	if raw == "" || !IsNumber(raw) {
		return res
	}

	if digits := countDigits(raw); digits < minCanonicalDigits {
		res.Number = model.Number(stripFormatting(raw))
		res.OK = true
		return res
	}

	parsed, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return res
	}

	res.Number = model.Number(phonenumbers.Format(parsed, phonenumbers.E164))
	res.OK = true
	return res
}

// IsNumber reports whether s is syntactically a phone number rather than a
// contact label.
func IsNumber(s string) bool {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "tel:"))
	return numberPattern.MatchString(s) && countDigits(s) >= 3
}

func countDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

func stripFormatting(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
