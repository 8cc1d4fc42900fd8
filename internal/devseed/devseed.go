// Package devseed loads seed documents for the in-memory mutation API used by
// the mock runtime mode and the sandbox server.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

// Seed is the decoded content of a seed file.
type Seed struct {
	Mutations []mutations.Mutation
	Lists     []mutations.MutationList
}

type seedDoc struct {
	Mutations []map[string]any `yaml:"mutations"`
	Lists     []struct {
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Mutations   []string `yaml:"mutations"`
	} `yaml:"lists"`
}

// Load reads a YAML or JSON seed file.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	seed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("devseed: %s: %w", path, err)
	}
	return seed, nil
}

// Parse decodes a seed document. JSON is accepted since it is valid YAML.
func Parse(data []byte) (*Seed, error) {
	var doc seedDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	seed := &Seed{}
	for i, raw := range doc.Mutations {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("mutation #%d: %w", i, err)
		}
		var m mutations.Mutation
		if err := json.Unmarshal(encoded, &m); err != nil {
			return nil, fmt.Errorf("mutation #%d: %w", i, err)
		}
		if strings.TrimSpace(m.MutationID) == "" {
			return nil, fmt.Errorf("mutation #%d: mutationId is required", i)
		}
		seed.Mutations = append(seed.Mutations, m)
	}
	for i, l := range doc.Lists {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("list #%d: name is required", i)
		}
		members := l.Mutations
		if members == nil {
			members = []string{}
		}
		seed.Lists = append(seed.Lists, mutations.MutationList{
			Name:        l.Name,
			Description: l.Description,
			Mutations:   members,
		})
	}
	return seed, nil
}
