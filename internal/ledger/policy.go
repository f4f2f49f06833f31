package ledger

import (
	"fmt"
	"strings"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
)

// Policy picks the best number from a contact's candidate list. The list is
// always sorted best first. Select returns false when the policy finds
// nothing acceptable, in which case the ledger follows the contact's alias.
type Policy interface {
	Select(candidates []model.Candidate, hint model.Number) (model.Number, bool)
	String() string
}

// The three resolution policies.
var (
	AsIs       Policy = asIsPolicy{}
	Newest     Policy = newestPolicy{}
	Configured Policy = configuredPolicy{}
)

// ParsePolicy maps a configuration value onto a policy.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "as-is", "asis", "as_is":
		return AsIs, nil
	case "", "newest", "latest":
		return Newest, nil
	case "configured", "config", "trusted":
		return Configured, nil
	default:
		return nil, fmt.Errorf("%w: unknown resolution policy %q", common.ErrConfiguration, name)
	}
}

// asIsPolicy trusts the number the document carried.
type asIsPolicy struct{}

func (asIsPolicy) Select(candidates []model.Candidate, hint model.Number) (model.Number, bool) {
	if hint != "" {
		return hint, true
	}
	return newestPolicy{}.Select(candidates, hint)
}

func (asIsPolicy) String() string { return "as-is" }

// newestPolicy returns the most recently seen number.
type newestPolicy struct{}

func (newestPolicy) Select(candidates []model.Candidate, _ model.Number) (model.Number, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].Number, true
}

func (newestPolicy) String() string { return "newest" }

// configuredPolicy only returns numbers from the trust file.
type configuredPolicy struct{}

func (configuredPolicy) Select(candidates []model.Candidate, hint model.Number) (model.Number, bool) {
	var head model.Number
	for _, c := range candidates {
		if !c.IsConfigured() {
			continue
		}
		if hint != "" && c.Number == hint {
			return hint, true
		}
		if head == "" {
			head = c.Number
		}
	}
	return head, head != ""
}

func (configuredPolicy) String() string { return "configured" }
