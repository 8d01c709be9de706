package inheritance

// MapFields builds the initial data of a target form from a source payload.
// Every mapping entry whose source field is present in source is copied,
// including null, false and zero values. Absent source fields are omitted.
func MapFields(mapping FieldMapping, source Payload) Payload {
	result := NewPayload()
	for _, entry := range mapping.Entries {
		if v, ok := source.Lookup(entry.Source); ok {
			result.Set(entry.Target, v)
		}
	}
	return result
}
