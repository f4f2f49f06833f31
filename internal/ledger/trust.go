package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

// LoadTrustFile reads operator-supplied contacts from a YAML or JSON file.
// Keys are contact labels or numbers; values are a number, a list of
// numbers (most preferred first) or another contact label. Any other shape
// is a configuration error.
func (l *Ledger) LoadTrustFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: failed to open trust file: %v", common.ErrConfiguration, err)
	}
	defer func() { _ = f.Close() }()

	if err := l.LoadTrust(f); err != nil {
		return fmt.Errorf("trust file %s: %w", path, err)
	}
	return nil
}

// LoadTrust reads trust entries from r. See LoadTrustFile.
func (l *Ledger) LoadTrust(r io.Reader) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: failed to parse trust file: %v", common.ErrConfiguration, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: trust file must be a mapping of contacts", common.ErrConfiguration)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if err := l.loadEntry(root.Content[i], root.Content[i+1]); err != nil {
			return err
		}
	}

	return l.checkAliases()
}

func (l *Ledger) loadEntry(keyNode, valueNode *yaml.Node) error {
	if keyNode.Kind != yaml.ScalarNode || strings.TrimSpace(keyNode.Value) == "" {
		return fmt.Errorf("%w: trust file key on line %d is not a contact or number", common.ErrConfiguration, keyNode.Line)
	}
	key := strings.TrimSpace(keyNode.Value)

	switch valueNode.Kind {
	case yaml.ScalarNode:
		value := strings.TrimSpace(valueNode.Value)
		if value == "" || valueNode.ShortTag() == "!!null" {
			return entryError(key, "empty value")
		}
		return l.loadScalar(key, value)

	case yaml.SequenceNode:
		if phone.IsNumber(key) {
			return entryError(key, "a number cannot map to a list")
		}
		if len(valueNode.Content) == 0 {
			return entryError(key, "empty number list")
		}
		numbers := make([]model.Number, 0, len(valueNode.Content))
		for _, item := range valueNode.Content {
			if item.Kind != yaml.ScalarNode || !phone.IsNumber(item.Value) {
				return entryError(key, "list entries must be numbers")
			}
			number, err := l.trustNumber(key, item.Value)
			if err != nil {
				return err
			}
			numbers = append(numbers, number)
		}
		l.Configure(key, numbers...)
		return nil

	default:
		return entryError(key, "value must be a number, a list of numbers or a contact")
	}
}

func (l *Ledger) loadScalar(key, value string) error {
	keyIsNumber := phone.IsNumber(key)
	valueIsNumber := phone.IsNumber(value)

	switch {
	case keyIsNumber && valueIsNumber:
		from, err := l.trustNumber(key, key)
		if err != nil {
			return err
		}
		to, err := l.trustNumber(key, value)
		if err != nil {
			return err
		}
		if from != to {
			l.AddNumberAlias(from, to)
		}
	case keyIsNumber:
		number, err := l.trustNumber(key, key)
		if err != nil {
			return err
		}
		l.Configure(value, number)
	case valueIsNumber:
		number, err := l.trustNumber(key, value)
		if err != nil {
			return err
		}
		l.Configure(key, number)
	default:
		if CleanLabel(key) == CleanLabel(value) {
			return entryError(key, "contact aliased to itself")
		}
		l.AddAlias(key, value)
	}
	return nil
}

func (l *Ledger) trustNumber(key, raw string) (model.Number, error) {
	res := l.norm.Normalize(raw)
	if !res.OK {
		return "", entryError(key, fmt.Sprintf("unparsable number %q", raw))
	}
	return res.Number, nil
}

// checkAliases rejects alias chains that loop or run past MaxAliasDepth.
func (l *Ledger) checkAliases() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for start := range l.aliases {
		seen := map[model.Contact]struct{}{start: {}}
		current := start
		for {
			next, ok := l.aliases[current]
			if !ok {
				break
			}
			if _, dup := seen[next]; dup {
				return fmt.Errorf("%w: alias cycle through %q", common.ErrConfiguration, start)
			}
			if len(seen) > MaxAliasDepth {
				return fmt.Errorf("%w: alias chain from %q is too long", common.ErrConfiguration, start)
			}
			seen[next] = struct{}{}
			current = next
		}
	}

	for start := range l.numberAliases {
		seen := map[model.Number]struct{}{start: {}}
		current := start
		for {
			next, ok := l.numberAliases[current]
			if !ok {
				break
			}
			if _, dup := seen[next]; dup {
				return fmt.Errorf("%w: number alias cycle through %s", common.ErrConfiguration, start)
			}
			if len(seen) > MaxAliasDepth {
				return fmt.Errorf("%w: number alias chain from %s is too long", common.ErrConfiguration, start)
			}
			seen[next] = struct{}{}
			current = next
		}
	}
	return nil
}

func entryError(key, reason string) error {
	return fmt.Errorf("%w: trust file entry %q: %s", common.ErrConfiguration, key, reason)
}
