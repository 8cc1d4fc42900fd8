package store

import (
	"strings"

	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

// State is a snapshot of the store. Slices are copies owned by the caller.
type State struct {
	Mutations        []mutations.Mutation
	TotalMutations   int
	CurrentPage      int
	PageSize         int
	MutationLists    []mutations.MutationList
	SelectedListName string // empty when nothing is selected
	FilterText       string
	Error            string
	Loading          bool
}

// FilteredMutations returns the cached mutations whose id contains FilterText,
// ignoring case. An empty filter returns every cached mutation.
func (s State) FilteredMutations() []mutations.Mutation {
	if s.FilterText == "" {
		return s.Mutations
	}
	needle := strings.ToLower(s.FilterText)
	out := make([]mutations.Mutation, 0, len(s.Mutations))
	for _, m := range s.Mutations {
		if strings.Contains(strings.ToLower(m.MutationID), needle) {
			out = append(out, m)
		}
	}
	return out
}

// SelectedList returns the list named SelectedListName.
func (s State) SelectedList() (mutations.MutationList, bool) {
	if s.SelectedListName == "" {
		return mutations.MutationList{}, false
	}
	for _, l := range s.MutationLists {
		if l.Name == s.SelectedListName {
			return l, true
		}
	}
	return mutations.MutationList{}, false
}

// MutationsInSelectedList returns the cached mutations whose id appears in the
// selected list's description. The list's Mutations field is not consulted.
func (s State) MutationsInSelectedList() []mutations.Mutation {
	in, _ := s.partitionBySelected()
	return in
}

// MutationsNotInSelectedList is the complement of MutationsInSelectedList.
func (s State) MutationsNotInSelectedList() []mutations.Mutation {
	_, out := s.partitionBySelected()
	return out
}

func (s State) partitionBySelected() (in, out []mutations.Mutation) {
	list, ok := s.SelectedList()
	if !ok {
		return []mutations.Mutation{}, []mutations.Mutation{}
	}
	in = make([]mutations.Mutation, 0)
	out = make([]mutations.Mutation, 0)
	for _, m := range s.Mutations {
		if strings.Contains(list.Description, m.MutationID) {
			in = append(in, m)
		} else {
			out = append(out, m)
		}
	}
	return in, out
}

// HasMoreMutations reports whether the server holds mutations not yet cached.
func (s State) HasMoreMutations() bool {
	return len(s.Mutations) < s.TotalMutations
}

func (s State) clone() State {
	out := s
	out.Mutations = append([]mutations.Mutation(nil), s.Mutations...)
	out.MutationLists = make([]mutations.MutationList, len(s.MutationLists))
	for i, l := range s.MutationLists {
		out.MutationLists[i] = l.Clone()
	}
	if out.Mutations == nil {
		out.Mutations = []mutations.Mutation{}
	}
	return out
}

func (s *State) indexOfList(name string) int {
	for i, l := range s.MutationLists {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// List returns the cached list called name.
func (s State) List(name string) (mutations.MutationList, bool) {
	if idx := s.indexOfList(name); idx >= 0 {
		return s.MutationLists[idx], true
	}
	return mutations.MutationList{}, false
}
