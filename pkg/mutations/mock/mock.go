// Package mock provides an in-memory implementation of the mutation API. A
// *Mock satisfies mutations.Backend, so it can be plugged straight into
// mutations.NewWithBackend; the sandbox server exposes it over HTTP.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/parseq/mutation_sdk_go/internal/devseed"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

// Op names a backend operation for failure injection and call inspection.
type Op string

const (
	OpFetchMutations     Op = "fetchMutations"
	OpFetchMutationLists Op = "fetchMutationLists"
	OpCreateMutationList Op = "createMutationList"
	OpUpdateMutationList Op = "updateMutationList"
	OpDeleteMutationList Op = "deleteMutationList"
	OpAddMutations       Op = "addMutationsToList"
	OpRemoveMutations    Op = "removeMutationsFromList"
)

// Call records one backend invocation.
type Call struct {
	Op          Op
	List        string
	Name        string
	Description string
	Mutations   []string
	Page        int
	PageSize    int
}

// Mock is a thread-safe in-memory mutation API.
type Mock struct {
	mu        sync.RWMutex
	mutations []mutations.Mutation
	ids       map[string]struct{}
	lists     []mutations.MutationList
	failures  map[Op]error
	calls     []Call

	// patchHook runs inside PatchMutations after the operation is chosen.
	patchHook func(Op)
}

var _ mutations.Backend = (*Mock)(nil)

// Option configures the mock instance.
type Option func(*Mock)

// WithMutations preloads mutations; duplicates by id are skipped.
func WithMutations(ms ...mutations.Mutation) Option {
	return func(m *Mock) {
		m.addMutationsLocked(ms)
	}
}

// WithLists preloads lists; a later list replaces an earlier one with the same name.
func WithLists(ls ...mutations.MutationList) Option {
	return func(m *Mock) {
		for _, l := range ls {
			m.putListLocked(l)
		}
	}
}

// New creates a mock, optionally preloaded.
func New(opts ...Option) *Mock {
	m := &Mock{
		ids:      make(map[string]struct{}),
		failures: make(map[Op]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads mutations and lists from a decoded seed document.
func (m *Mock) Seed(seed *devseed.Seed) error {
	if seed == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range seed.Lists {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("mock mutations: seed list missing name")
		}
	}
	m.addMutationsLocked(seed.Mutations)
	for _, l := range seed.Lists {
		m.putListLocked(l)
	}
	return nil
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (m *Mock) Fail(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns the invocations seen so far, in order.
func (m *Mock) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Call, len(m.calls))
	for i, c := range m.calls {
		c.Mutations = cloneIDs(c.Mutations)
		out[i] = c
	}
	return out
}

// CallsOf returns the invocations of op.
func (m *Mock) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// List returns a copy of the named list.
func (m *Mock) List(name string) (mutations.MutationList, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx := m.indexLocked(name)
	if idx < 0 {
		return mutations.MutationList{}, false
	}
	return m.lists[idx].Clone(), true
}

// MutationCount reports how many mutations the mock holds.
func (m *Mock) MutationCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mutations)
}

// FetchMutations returns the requested page window.
func (m *Mock) FetchMutations(ctx context.Context, pageNumber, pageSize int) (*mutations.MutationPage, error) {
	if err := m.begin(ctx, Call{Op: OpFetchMutations, Page: pageNumber, PageSize: pageSize}); err != nil {
		return nil, err
	}
	if pageNumber < 0 || pageSize <= 0 {
		return nil, fmt.Errorf("%w: invalid page window %d/%d", mutations.ErrInvalidArgument, pageNumber, pageSize)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.mutations)
	start := pageNumber * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	resources := make([]mutations.Mutation, end-start)
	copy(resources, m.mutations[start:end])
	return &mutations.MutationPage{
		Page:                 mutations.Page{ZeroBasedNumber: pageNumber, Size: pageSize},
		Resources:            resources,
		ResourcesTotalNumber: total,
	}, nil
}

// FetchMutationLists returns every list in creation order.
func (m *Mock) FetchMutationLists(ctx context.Context) ([]mutations.MutationList, error) {
	if err := m.begin(ctx, Call{Op: OpFetchMutationLists}); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]mutations.MutationList, len(m.lists))
	for i, l := range m.lists {
		out[i] = l.Clone()
	}
	return out, nil
}

// CreateMutationList creates an empty list. Names are unique.
func (m *Mock) CreateMutationList(ctx context.Context, name string) (*mutations.MutationList, error) {
	if err := m.begin(ctx, Call{Op: OpCreateMutationList, Name: name}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: list name is required", mutations.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexLocked(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", mutations.ErrConflict, name)
	}
	list := mutations.MutationList{Name: name, Description: "", Mutations: []string{}}
	m.lists = append(m.lists, list)
	out := list.Clone()
	return &out, nil
}

// UpdateMutationList renames listID to name and sets its description. Members
// are kept.
func (m *Mock) UpdateMutationList(ctx context.Context, listID, name, description string) (*mutations.MutationList, error) {
	if err := m.begin(ctx, Call{Op: OpUpdateMutationList, List: listID, Name: name, Description: description}); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: list name is required", mutations.ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(listID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: list %q", mutations.ErrNotFound, listID)
	}
	if name != listID && m.indexLocked(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", mutations.ErrConflict, name)
	}
	m.lists[idx].Name = name
	m.lists[idx].Description = description
	out := m.lists[idx].Clone()
	return &out, nil
}

// DeleteMutationList removes listID.
func (m *Mock) DeleteMutationList(ctx context.Context, listID string) error {
	if err := m.begin(ctx, Call{Op: OpDeleteMutationList, List: listID}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(listID)
	if idx < 0 {
		return fmt.Errorf("%w: list %q", mutations.ErrNotFound, listID)
	}
	m.lists = append(m.lists[:idx], m.lists[idx+1:]...)
	return nil
}

// AddMutationsToList replaces the membership of listName with ids
// (deduplicated, order kept).
func (m *Mock) AddMutationsToList(ctx context.Context, listName string, ids []string) error {
	if err := m.begin(ctx, Call{Op: OpAddMutations, List: listName, Mutations: cloneIDs(ids)}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceMembersLocked(listName, ids)
}

// RemoveMutationsFromList drops ids from the membership of listName.
func (m *Mock) RemoveMutationsFromList(ctx context.Context, listName string, ids []string) error {
	if err := m.begin(ctx, Call{Op: OpRemoveMutations, List: listName, Mutations: cloneIDs(ids)}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeMembersLocked(listName, ids)
}

// PatchMutations applies a PATCH body whose intent is not carried on the
// wire: a body containing every current member is a full-membership replace,
// any other body lists ids to remove. Removing the only member of a
// single-member list is therefore indistinguishable from a no-op replace.
// The membership read and the write happen under one lock.
func (m *Mock) PatchMutations(ctx context.Context, listName string, ids []string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	op := OpAddMutations
	if idx := m.indexLocked(listName); idx >= 0 && !containsAll(ids, m.lists[idx].Mutations) {
		op = OpRemoveMutations
	}
	if m.patchHook != nil {
		m.patchHook(op)
	}
	if err := m.recordLocked(Call{Op: op, List: listName, Mutations: cloneIDs(ids)}); err != nil {
		return err
	}
	if op == OpRemoveMutations {
		return m.removeMembersLocked(listName, ids)
	}
	return m.replaceMembersLocked(listName, ids)
}

func (m *Mock) begin(ctx context.Context, call Call) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recordLocked(call)
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

func (m *Mock) recordLocked(call Call) error {
	m.calls = append(m.calls, call)
	if err, ok := m.failures[call.Op]; ok {
		return err
	}
	return nil
}

func (m *Mock) replaceMembersLocked(listName string, ids []string) error {
	idx := m.indexLocked(listName)
	if idx < 0 {
		return fmt.Errorf("%w: list %q", mutations.ErrNotFound, listName)
	}
	m.lists[idx].Mutations = dedupe(ids)
	return nil
}

func (m *Mock) removeMembersLocked(listName string, ids []string) error {
	idx := m.indexLocked(listName)
	if idx < 0 {
		return fmt.Errorf("%w: list %q", mutations.ErrNotFound, listName)
	}
	m.lists[idx].Mutations = without(m.lists[idx].Mutations, ids)
	return nil
}

func (m *Mock) addMutationsLocked(ms []mutations.Mutation) {
	for _, mut := range ms {
		if _, dup := m.ids[mut.MutationID]; dup {
			continue
		}
		m.ids[mut.MutationID] = struct{}{}
		m.mutations = append(m.mutations, mut)
	}
}

func (m *Mock) putListLocked(l mutations.MutationList) {
	l = l.Clone()
	if l.Mutations == nil {
		l.Mutations = []string{}
	}
	if idx := m.indexLocked(l.Name); idx >= 0 {
		m.lists[idx] = l
		return
	}
	m.lists = append(m.lists, l)
}

func (m *Mock) indexLocked(name string) int {
	for i, l := range m.lists {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	return append([]string(nil), ids...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func without(ids, drop []string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, id := range drop {
		skip[id] = struct{}{}
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

func containsAll(set, want []string) bool {
	have := make(map[string]struct{}, len(set))
	for _, id := range set {
		have[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}
