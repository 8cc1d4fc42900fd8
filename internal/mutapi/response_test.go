package mutapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractField(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "list envelope",
			body:     `{"list":{"name":"L1","mutations":["m1"]}}`,
			expected: `{"name":"L1","mutations":["m1"]}`,
		},
		{
			name:     "string encoded envelope",
			body:     `{"list":"{\"name\":\"L1\"}"}`,
			expected: `{"name":"L1"}`,
		},
		{
			name:     "bare object",
			body:     `{"name":"L1","description":""}`,
			expected: `{"name":"L1","description":""}`,
		},
		{
			name:     "array passthrough",
			body:     ` [{"name":"L1"}] `,
			expected: `[{"name":"L1"}]`,
		},
		{
			name:     "plain string field",
			body:     `{"list":"L1"}`,
			expected: `"L1"`,
		},
		{
			name:     "empty body",
			body:     ``,
			expected: ``,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractField([]byte(tc.body), ListField)
			require.NoError(t, err)
			require.Equal(t, tc.expected, string(got))
		})
	}
}

func TestDecodeList(t *testing.T) {
	var out struct {
		Name      string   `json:"name"`
		Mutations []string `json:"mutations"`
	}
	require.NoError(t, DecodeList([]byte(`{"list":{"name":"L1","mutations":["m1","m2"]}}`), &out))
	require.Equal(t, "L1", out.Name)
	require.Equal(t, []string{"m1", "m2"}, out.Mutations)

	var empty *struct{ Name string }
	require.NoError(t, DecodeList(nil, &empty))
	require.Nil(t, empty)
}
