package mutations

import (
	"encoding/json"
	"errors"
)

// Mutation is a variant record. Only MutationID is interpreted by the SDK; the
// remaining fields are optional annotations passed through as received. The
// original JSON document is retained so fields unknown to this package survive
// a decode/encode round trip.
type Mutation struct {
	MutationID                   string            `json:"mutationId"`
	EvidenceLevel                string            `json:"evidenceLevel,omitempty"`
	AcmgSignificances            []string          `json:"acmgSignificances,omitempty"`
	MutationType                 string            `json:"mutationType,omitempty"`
	AcmgAnnotations              []json.RawMessage `json:"acmgAnnotations,omitempty"`
	Analyses                     []json.RawMessage `json:"analyses,omitempty"`
	AnalysesTranscripts          []json.RawMessage `json:"analysesTranscripts,omitempty"`
	DiagnosticAnnotations        []json.RawMessage `json:"diagnosticAnnotations,omitempty"`
	Drugs                        []json.RawMessage `json:"drugs,omitempty"`
	HasPrivateAnnotations        *bool             `json:"hasPrivateAnnotations,omitempty"`
	InAnalysis                   *bool             `json:"inAnalysis,omitempty"`
	IsAnnotatedByAcmg            *bool             `json:"isAnnotatedByAcmg,omitempty"`
	IsAnnotatedByAmp             *bool             `json:"isAnnotatedByAmp,omitempty"`
	LowTierAnnotations           []json.RawMessage `json:"lowTierAnnotations,omitempty"`
	MaybeChrNumber               string            `json:"maybeChrNumber,omitempty"`
	MaybeHgvsGdna                string            `json:"maybeHgvsGdna,omitempty"`
	MaybeHighestTier             *string           `json:"maybeHighestTier,omitempty"`
	MaybeReferenceGenomeContigID string            `json:"maybeReferenceGenomeContigId,omitempty"`
	MaybeTrivialName             *string           `json:"maybeTrivialName,omitempty"`
	OrganizationFrequencyRatio   *float64          `json:"organizationFrequencyRatio,omitempty"`
	PrognosticAnnotations        []json.RawMessage `json:"prognosticAnnotations,omitempty"`
	SentToAnnotation             *bool             `json:"sentToAnnotation,omitempty"`
	TherapeuticAnnotations       []json.RawMessage `json:"therapeuticAnnotations,omitempty"`

	raw json.RawMessage
}

type mutationFields Mutation

// UnmarshalJSON decodes the known fields and keeps the source document.
func (m *Mutation) UnmarshalJSON(data []byte) error {
	var fields mutationFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = Mutation(fields)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the source document when the value was decoded, so
// unknown fields are preserved.
func (m Mutation) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return json.Marshal(mutationFields(m))
}

// Raw returns the JSON document the mutation was decoded from, if any.
func (m Mutation) Raw() json.RawMessage {
	return m.raw
}

// MutationList is a user-defined named collection of mutation ids. Name is
// the primary key used in API paths.
type MutationList struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Mutations   []string `json:"mutations"`
}

// Clone returns a deep copy of the list.
func (l MutationList) Clone() MutationList {
	out := l
	if l.Mutations != nil {
		out.Mutations = append([]string(nil), l.Mutations...)
	}
	return out
}

// Contains reports whether mutationID is a member of the list.
func (l MutationList) Contains(mutationID string) bool {
	for _, id := range l.Mutations {
		if id == mutationID {
			return true
		}
	}
	return false
}

// Page is the page window echoed back by the mutation listing.
type Page struct {
	ZeroBasedNumber int `json:"zeroBasedNumber"`
	Size            int `json:"size"`
}

// MutationPage is one page of the server's mutation collection.
type MutationPage struct {
	Page                 Page       `json:"page"`
	Resources            []Mutation `json:"resources"`
	ResourcesTotalNumber int        `json:"resourcesTotalNumber"`
}

// UpdateListRequest is the body of the list update endpoint.
type UpdateListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

var (
	// ErrInvalidArgument is returned before any request when an argument
	// violates the endpoint constraints.
	ErrInvalidArgument = errors.New("mutations: invalid argument")
	// ErrNotFound is returned by in-memory backends for unknown lists.
	ErrNotFound = errors.New("mutations: not found")
	// ErrConflict is returned by in-memory backends when a list name is taken.
	ErrConflict = errors.New("mutations: list already exists")
)
