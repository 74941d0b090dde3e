// Package filter translates command-line metadata and filter arguments into
// the maps a vector store understands, and evaluates them against documents.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for malformed metadata or filter arguments.
var ErrInvalid = errors.New("invalid filter")

// Pair is one key=value item split at the first '='.
type Pair struct {
	Key   string
	Value string
}

// SplitPair splits item at the first '='. Keys and values are kept verbatim,
// so "author=John Doe" yields ("author", "John Doe") and "eq=a=b" yields
// ("eq", "a=b"). ok is false when item has no '=' or an empty key.
func SplitPair(item string) (Pair, bool) {
	key, value, found := strings.Cut(item, "=")
	if !found || key == "" {
		return Pair{}, false
	}
	return Pair{Key: key, Value: value}, true
}

// ParseMetadata merges key=value items into one map. Items that are not in
// key=value form are returned in skipped and otherwise ignored. Later items
// overwrite earlier ones with the same key. A nil map is returned when no
// item parses.
func ParseMetadata(items []string) (meta map[string]string, skipped []string) {
	for _, item := range items {
		p, ok := SplitPair(item)
		if !ok {
			skipped = append(skipped, item)
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[p.Key] = p.Value
	}
	return meta, skipped
}

// AssignMetadata distributes --metadata items across n documents:
//
//   - len(items) == n: item i belongs to document i
//   - len(items) == 1: the item applies to every document
//   - n == 1: every item merges into the single document
//
// Any other combination is an error. The returned slice is nil when items is
// empty; entries are nil for documents whose items were all skipped.
func AssignMetadata(items []string, n int) ([]map[string]string, []string, error) {
	if len(items) == 0 {
		return nil, nil, nil
	}
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: metadata given without documents", ErrInvalid)
	}

	out := make([]map[string]string, n)
	var skipped []string

	switch {
	case len(items) == n:
		for i, item := range items {
			meta, s := ParseMetadata([]string{item})
			out[i] = meta
			skipped = append(skipped, s...)
		}
	case len(items) == 1:
		meta, s := ParseMetadata(items)
		skipped = s
		for i := range out {
			out[i] = cloneMap(meta)
		}
	case n == 1:
		out[0], skipped = ParseMetadata(items)
	default:
		return nil, nil, fmt.Errorf("%w: got %d --metadata values for %d documents (give one per document, one for all, or any number for a single document)",
			ErrInvalid, len(items), n)
	}

	return out, skipped, nil
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
