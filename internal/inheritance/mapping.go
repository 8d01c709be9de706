package inheritance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// MappingEntry copies the source field Source into the target field Target.
type MappingEntry struct {
	Target string
	Source string
}

// FieldMapping is a parsed inheritance mapping of target field to source field.
type FieldMapping struct {
	Entries []MappingEntry
	Skipped []string // target fields whose source was not a string
}

// ParseFieldMapping parses a template inheritance mapping. Entries whose
// source is not a string are recorded in Skipped and otherwise ignored.
// Input that is not a JSON object yields an empty mapping and an error.
func ParseFieldMapping(raw json.RawMessage) (FieldMapping, error) {
	var m FieldMapping
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return m, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return FieldMapping{}, fmt.Errorf("inheritance mapping must be a JSON object: %w", err)
	}

	for target, rawSource := range entries {
		var source string
		if bytes.Equal(bytes.TrimSpace(rawSource), jsonNull) || json.Unmarshal(rawSource, &source) != nil {
			m.Skipped = append(m.Skipped, target)
			continue
		}
		m.Entries = append(m.Entries, MappingEntry{Target: target, Source: source})
	}
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Target < m.Entries[j].Target })
	sort.Strings(m.Skipped)
	return m, nil
}

func (m FieldMapping) IsEmpty() bool {
	return len(m.Entries) == 0
}
