package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// Record is one line of a document import file.
type Record struct {
	ID       string         `json:"id,omitempty"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ReadJSONL reads documents from a JSONL file, one Record per line. Blank
// lines are skipped. Metadata values must be strings, numbers or booleans;
// they are returned as strings.
func ReadJSONL(path string) (ids, texts []string, metadatas []map[string]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	hasMeta := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, nil, nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if rec.Text == "" {
			return nil, nil, nil, fmt.Errorf("line %d: text is required", lineNum)
		}
		meta, err := stringValues(rec.Metadata)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		ids = append(ids, rec.ID)
		texts = append(texts, rec.Text)
		metadatas = append(metadatas, meta)
		if meta != nil {
			hasMeta = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("reading import file: %w", err)
	}

	// Ids are all-or-nothing so they still pair with texts by index.
	given := 0
	for _, id := range ids {
		if id != "" {
			given++
		}
	}
	switch {
	case given == 0:
		ids = nil
	case given != len(ids):
		return nil, nil, nil, fmt.Errorf("%d of %d records have an id; give every record an id or none", given, len(ids))
	}
	if !hasMeta {
		metadatas = nil
	}

	return ids, texts, metadatas, nil
}

func stringValues(m map[string]any) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return nil, fmt.Errorf("metadata %q must be a string, number or boolean", k)
		}
	}
	return out, nil
}
