package inheritance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldMapping(t *testing.T) {
	t.Run("Skips non-string entries", func(t *testing.T) {
		m, err := ParseFieldMapping(json.RawMessage(`{"name":"fullName","age":3,"tags":["x"],"city":"town","none":null}`))
		require.NoError(t, err)
		assert.Equal(t, []MappingEntry{
			{Target: "city", Source: "town"},
			{Target: "name", Source: "fullName"},
		}, m.Entries)
		assert.Equal(t, []string{"age", "none", "tags"}, m.Skipped)
	})

	t.Run("Empty", func(t *testing.T) {
		m, err := ParseFieldMapping(nil)
		require.NoError(t, err)
		assert.True(t, m.IsEmpty())
	})

	t.Run("Malformed", func(t *testing.T) {
		m, err := ParseFieldMapping(json.RawMessage(`"fullName"`))
		assert.Error(t, err)
		assert.True(t, m.IsEmpty())
	})
}

func TestMapFields(t *testing.T) {
	source, err := ParsePayload([]byte(`{"fullName":"Ana","agreed":false,"score":0,"notes":null}`))
	require.NoError(t, err)

	mapping, err := ParseFieldMapping(json.RawMessage(`{
		"name": "fullName",
		"consent": "agreed",
		"points": "score",
		"comment": "notes",
		"email": "emailAddress"
	}`))
	require.NoError(t, err)

	result := MapFields(mapping, source)

	// The absent source field is omitted, not set to null.
	assert.Equal(t, []string{"comment", "consent", "name", "points"}, result.Keys())
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ana","consent":false,"points":0,"comment":null}`, string(encoded))
}

func TestMapFields_EmptyMapping(t *testing.T) {
	source, err := ParsePayload([]byte(`{"fullName":"Ana"}`))
	require.NoError(t, err)

	result := MapFields(FieldMapping{}, source)
	assert.Equal(t, 0, result.Len())
}

func TestMapFields_KeysMatchPresentSources(t *testing.T) {
	cases := []struct {
		name    string
		mapping string
		source  string
		want    string
	}{
		{"all present", `{"a":"x","b":"y"}`, `{"x":1,"y":"two"}`, `{"a":1,"b":"two"}`},
		{"none present", `{"a":"x"}`, `{"y":1}`, `{}`},
		{"same source twice", `{"a":"x","b":"x"}`, `{"x":[1,2]}`, `{"a":[1,2],"b":[1,2]}`},
		{"nested values copied whole", `{"addr":"address"}`, `{"address":{"city":"Lisbon"}}`, `{"addr":{"city":"Lisbon"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapping, err := ParseFieldMapping(json.RawMessage(tc.mapping))
			require.NoError(t, err)
			source, err := ParsePayload([]byte(tc.source))
			require.NoError(t, err)

			encoded, err := json.Marshal(MapFields(mapping, source))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(encoded))
		})
	}
}
