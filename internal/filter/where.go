package filter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Operators understood by where-document filters.
const (
	OpContains    = "$contains"
	OpNotContains = "$not_contains"
)

// Where is a conjunction of metadata equality predicates.
type Where map[string]string

// WhereDocument is a conjunction of content predicates keyed by operator.
type WhereDocument map[string]string

// ParseWhere builds a Where from --where arguments. Each argument is either
// key=value or a JSON object such as {"author":"John"},
// {"author":{"$eq":"John"}} or {"$and":[{"a":"1"},{"b":"2"}]}. All arguments
// are ANDed. Returns nil for no arguments.
func ParseWhere(args []string) (Where, error) {
	var w Where
	for _, arg := range args {
		part, err := parseWhereArg(arg)
		if err != nil {
			return nil, err
		}
		if w == nil {
			w = make(Where)
		}
		if err := w.merge(part); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func parseWhereArg(arg string) (Where, error) {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, fmt.Errorf("%w: --where is not valid JSON: %v", ErrInvalid, err)
		}
		w := make(Where)
		if err := w.addJSON(raw); err != nil {
			return nil, err
		}
		return w, nil
	}

	p, ok := SplitPair(arg)
	if !ok {
		return nil, fmt.Errorf("%w: --where %q must be key=value or a JSON object", ErrInvalid, arg)
	}
	return Where{p.Key: p.Value}, nil
}

func (w Where) addJSON(raw map[string]json.RawMessage) error {
	for key, value := range raw {
		switch {
		case key == "$and":
			var clauses []map[string]json.RawMessage
			if err := json.Unmarshal(value, &clauses); err != nil {
				return fmt.Errorf("%w: $and must be a list of objects", ErrInvalid)
			}
			for _, clause := range clauses {
				if err := w.addJSON(clause); err != nil {
					return err
				}
			}
		case strings.HasPrefix(key, "$"):
			return fmt.Errorf("%w: operator %s is not supported (only equality and $and)", ErrInvalid, key)
		default:
			v, err := equalityOperand(key, value)
			if err != nil {
				return err
			}
			if err := w.merge(Where{key: v}); err != nil {
				return err
			}
		}
	}
	return nil
}

// equalityOperand accepts a scalar or {"$eq": scalar}.
func equalityOperand(key string, value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) > 0 && value[0] == '{' {
		var ops map[string]json.RawMessage
		if err := json.Unmarshal(value, &ops); err != nil {
			return "", fmt.Errorf("%w: filter on %q: %v", ErrInvalid, key, err)
		}
		if len(ops) != 1 {
			return "", fmt.Errorf("%w: filter on %q must have exactly one operator", ErrInvalid, key)
		}
		eq, ok := ops["$eq"]
		if !ok {
			for op := range ops {
				return "", fmt.Errorf("%w: operator %s on %q is not supported (only $eq)", ErrInvalid, op, key)
			}
		}
		value = bytes.TrimSpace(eq)
	}
	return scalar(key, value)
}

// scalar renders a JSON string, number or bool as the text stored in metadata.
func scalar(key string, value json.RawMessage) (string, error) {
	if len(value) == 0 {
		return "", fmt.Errorf("%w: filter on %q has no value", ErrInvalid, key)
	}
	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", fmt.Errorf("%w: filter on %q: %v", ErrInvalid, key, err)
		}
		return s, nil
	case '[', '{', 'n':
		return "", fmt.Errorf("%w: filter on %q must compare against a string, number or bool", ErrInvalid, key)
	default:
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			return "", fmt.Errorf("%w: filter on %q: %v", ErrInvalid, key, err)
		}
		return string(value), nil
	}
}

func (w Where) merge(other Where) error {
	for k, v := range other {
		if existing, ok := w[k]; ok && existing != v {
			return fmt.Errorf("%w: conflicting values for %q (%q and %q)", ErrInvalid, k, existing, v)
		}
		w[k] = v
	}
	return nil
}

// Keys returns the filtered keys in sorted order.
func (w Where) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Matches reports whether meta satisfies every predicate. A missing key never
// matches, even against an empty value.
func (w Where) Matches(meta map[string]string) bool {
	for k, want := range w {
		got, ok := meta[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// ParseWhereDocument parses a --where-document JSON object such as
// {"$contains":"keyword"}. Returns nil for an empty argument.
func ParseWhereDocument(arg string) (WhereDocument, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arg), &raw); err != nil {
		return nil, fmt.Errorf("%w: --where-document is not valid JSON: %v", ErrInvalid, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: --where-document needs %s or %s", ErrInvalid, OpContains, OpNotContains)
	}

	wd := make(WhereDocument, len(raw))
	for op, value := range raw {
		if op != OpContains && op != OpNotContains {
			return nil, fmt.Errorf("%w: where-document operator %s is not supported (use %s or %s)", ErrInvalid, op, OpContains, OpNotContains)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("%w: %s needs a string operand", ErrInvalid, op)
		}
		wd[op] = s
	}
	return wd, nil
}

// Matches reports whether text satisfies every content predicate.
func (wd WhereDocument) Matches(text string) bool {
	if s, ok := wd[OpContains]; ok && !strings.Contains(text, s) {
		return false
	}
	if s, ok := wd[OpNotContains]; ok && strings.Contains(text, s) {
		return false
	}
	return true
}
