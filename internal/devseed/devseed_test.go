package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseYAML(t *testing.T) {
	seed, err := Parse([]byte(`
mutations:
  - mutationId: "chr1:g.100A>T"
    mutationType: SNV
    organizationFrequencyRatio: 0.25
  - mutationId: "chr2:g.5del"
lists:
  - name: favourites
    description: "chr1:g.100A>T"
    mutations: ["chr1:g.100A>T"]
  - name: empty
`))
	require.NoError(t, err)
	require.Len(t, seed.Mutations, 2)
	require.Equal(t, "chr1:g.100A>T", seed.Mutations[0].MutationID)
	require.Equal(t, "SNV", seed.Mutations[0].MutationType)
	require.NotNil(t, seed.Mutations[0].OrganizationFrequencyRatio)
	require.InDelta(t, 0.25, *seed.Mutations[0].OrganizationFrequencyRatio, 1e-9)
	require.Len(t, seed.Lists, 2)
	require.Equal(t, []string{"chr1:g.100A>T"}, seed.Lists[0].Mutations)
	require.Equal(t, []string{}, seed.Lists[1].Mutations)
}

func TestParseJSON(t *testing.T) {
	seed, err := Parse([]byte(`{"mutations":[{"mutationId":"m1"}],"lists":[{"name":"L1","description":"","mutations":["m1"]}]}`))
	require.NoError(t, err)
	require.Equal(t, "m1", seed.Mutations[0].MutationID)
	require.Equal(t, "L1", seed.Lists[0].Name)
}

func TestParseRejectsMissingKeys(t *testing.T) {
	_, err := Parse([]byte(`mutations: [{mutationType: SNV}]`))
	require.Error(t, err)

	_, err = Parse([]byte(`lists: [{description: x}]`))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mutations:\n  - mutationId: m1\n"), 0o600))

	seed, err := Load(path)
	require.NoError(t, err)
	require.Len(t, seed.Mutations, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
