package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/internal/metrics"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

const (
	actionLoadMutations  = "load_mutations"
	actionLoadLists      = "load_mutation_lists"
	actionCreateList     = "create_mutation_list"
	actionUpdateList     = "update_mutation_list"
	actionRenameList     = "rename_mutation_list"
	actionDeleteList     = "delete_mutation_list"
	actionAddMutation    = "add_mutation_to_list"
	actionRemoveMutation = "remove_mutation_from_list"
)

const (
	msgLoadMutations  = "Failed to load mutations"
	msgLoadLists      = "Failed to load mutation lists"
	msgCreateList     = "Failed to create mutation list"
	msgUpdateList     = "Failed to update mutation list"
	msgRenameList     = "Failed to rename mutation list"
	msgDeleteList     = "Failed to delete mutation list"
	msgAddMutation    = "Failed to add mutation to list"
	msgRemoveMutation = "Failed to remove mutation from list"
)

// LoadMutations loads the page at the current cursor. At cursor 0 the cache
// is replaced; otherwise new mutations are appended.
func (s *Store) LoadMutations(ctx context.Context) error {
	unlock := s.keys.Lock(keyMutations)
	defer unlock()

	s.mu.RLock()
	page := s.state.CurrentPage
	s.mu.RUnlock()
	return s.loadPage(ctx, page)
}

// LoadMutationsPage loads page. Page 0 replaces the cache; any other page
// appends the mutations whose id is not cached yet, keeping existing order.
func (s *Store) LoadMutationsPage(ctx context.Context, page int) error {
	unlock := s.keys.Lock(keyMutations)
	defer unlock()
	return s.loadPage(ctx, page)
}

// LoadMoreMutations loads the page after the cursor while the server reports
// more mutations than are cached. It is a no-op otherwise.
func (s *Store) LoadMoreMutations(ctx context.Context) error {
	unlock := s.keys.Lock(keyMutations)
	defer unlock()

	s.mu.RLock()
	more := s.state.HasMoreMutations()
	next := s.state.CurrentPage + 1
	s.mu.RUnlock()
	if !more {
		return nil
	}
	return s.loadPage(ctx, next)
}

func (s *Store) loadPage(ctx context.Context, page int) (err error) {
	start := s.begin()
	defer func() { s.finish(actionLoadMutations, msgLoadMutations, start, err, logger.Page(page)) }()

	s.mu.RLock()
	size := s.state.PageSize
	s.mu.RUnlock()

	res, err := s.remote.FetchMutations(ctx, page, size)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if page == 0 {
		s.state.Mutations = append([]mutations.Mutation{}, res.Resources...)
	} else {
		s.state.Mutations = mergeMutations(s.state.Mutations, res.Resources)
	}
	s.state.CurrentPage = page
	s.state.TotalMutations = res.ResourcesTotalNumber
	cached := len(s.state.Mutations)
	s.mu.Unlock()

	metrics.CachedMutations.WithLabelValues(s.name).Set(float64(cached))
	return nil
}

func mergeMutations(cached, fetched []mutations.Mutation) []mutations.Mutation {
	seen := make(map[string]struct{}, len(cached))
	for _, m := range cached {
		seen[m.MutationID] = struct{}{}
	}
	for _, m := range fetched {
		if _, ok := seen[m.MutationID]; ok {
			continue
		}
		seen[m.MutationID] = struct{}{}
		cached = append(cached, m)
	}
	return cached
}

// LoadMutationLists replaces the cached lists with the server's. Concurrent
// calls share one request. Each caller returns when its own ctx is done; the
// shared request keeps running for the others under the client's timeout.
func (s *Store) LoadMutationLists(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(keyLists, func() (any, error) {
		unlock := s.keys.Lock(keyLists)
		defer unlock()
		return nil, s.loadLists(shared)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) loadLists(ctx context.Context) (err error) {
	start := s.begin()
	defer func() { s.finish(actionLoadLists, msgLoadLists, start, err) }()

	lists, err := s.remote.FetchMutationLists(ctx)
	if err != nil {
		return err
	}
	fresh := make([]mutations.MutationList, len(lists))
	for i, l := range lists {
		fresh[i] = normalizeList(l)
	}

	s.mu.Lock()
	s.state.MutationLists = fresh
	s.mu.Unlock()
	return nil
}

// AddMutationList creates an empty list and adds it to the local state. When
// reload-after-create is enabled the lists are then refetched; a failing
// refetch is logged and does not fail the create.
func (s *Store) AddMutationList(ctx context.Context, name string) (*mutations.MutationList, error) {
	created, err := s.createList(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.reloadAfterCreate {
		if rerr := s.LoadMutationLists(ctx); rerr != nil {
			s.log.Warn("reload after create failed", logger.ListName(name), zap.Error(rerr))
		}
	}
	return created, nil
}

func (s *Store) createList(ctx context.Context, name string) (created *mutations.MutationList, err error) {
	unlock := s.keys.Lock(keyLists)
	defer unlock()

	start := s.begin()
	defer func() { s.finish(actionCreateList, msgCreateList, start, err, logger.ListName(name)) }()

	list, err := s.remote.CreateMutationList(ctx, name)
	if err != nil {
		return nil, err
	}
	local := mutations.MutationList{Name: name, Mutations: []string{}}
	if list != nil {
		local = normalizeList(*list)
	}

	s.mu.Lock()
	if idx := s.state.indexOfList(local.Name); idx >= 0 {
		s.state.MutationLists[idx] = local
	} else {
		s.state.MutationLists = append(s.state.MutationLists, local)
	}
	s.mu.Unlock()

	out := local.Clone()
	return &out, nil
}

// UpdateMutationList renames the list listID to name and sets its description
// through the update endpoint. The returned list replaces the local entry at
// its position and a selection of listID follows the rename.
func (s *Store) UpdateMutationList(ctx context.Context, listID, name, description string) (updated *mutations.MutationList, err error) {
	unlockLists := s.keys.Lock(keyLists)
	defer unlockLists()
	unlockList := s.keys.Lock(listKey(listID))
	defer unlockList()

	start := s.begin()
	defer func() { s.finish(actionUpdateList, msgUpdateList, start, err, logger.ListName(listID)) }()

	list, err := s.remote.UpdateMutationList(ctx, listID, name, description)
	if err != nil {
		return nil, err
	}
	local := mutations.MutationList{Name: name, Description: description, Mutations: []string{}}
	if list != nil {
		local = normalizeList(*list)
	}

	s.mu.Lock()
	if idx := s.state.indexOfList(listID); idx >= 0 {
		s.state.MutationLists[idx] = local
	}
	if s.state.SelectedListName == listID {
		s.state.SelectedListName = local.Name
	}
	s.mu.Unlock()

	out := local.Clone()
	return &out, nil
}

// RenameMutationList renames oldName by creating newName, copying the
// membership over and deleting oldName. The new list takes the old one's
// position and selection. A failure part way leaves the remote state as the
// completed steps made it; the local state is only changed once every step
// has succeeded.
func (s *Store) RenameMutationList(ctx context.Context, oldName, newName string) (renamed *mutations.MutationList, err error) {
	unlockLists := s.keys.Lock(keyLists)
	defer unlockLists()
	unlockOld := s.keys.Lock(listKey(oldName))
	defer unlockOld()
	if newName != oldName {
		unlockNew := s.keys.Lock(listKey(newName))
		defer unlockNew()
	}

	start := s.begin()
	defer func() { s.finish(actionRenameList, msgRenameList, start, err, logger.ListName(oldName)) }()

	s.mu.RLock()
	idx := s.state.indexOfList(oldName)
	var current mutations.MutationList
	if idx >= 0 {
		current = s.state.MutationLists[idx].Clone()
	}
	s.mu.RUnlock()
	if idx < 0 {
		return nil, ErrListNotFound
	}
	if newName == oldName {
		return &current, nil
	}

	created, err := s.remote.CreateMutationList(ctx, newName)
	if err != nil {
		return nil, err
	}
	if len(current.Mutations) > 0 {
		if err = s.remote.AddMutationToList(ctx, newName, current.Mutations); err != nil {
			return nil, err
		}
	}
	if err = s.remote.DeleteMutationList(ctx, oldName); err != nil {
		return nil, err
	}

	local := mutations.MutationList{Name: newName}
	if created != nil {
		local = normalizeList(*created)
	}
	local.Mutations = append([]string{}, current.Mutations...)

	s.mu.Lock()
	if i := s.state.indexOfList(oldName); i >= 0 {
		s.state.MutationLists[i] = local
	} else {
		s.state.MutationLists = append(s.state.MutationLists, local)
	}
	if s.state.SelectedListName == oldName {
		s.state.SelectedListName = newName
	}
	s.mu.Unlock()

	out := local.Clone()
	return &out, nil
}

// DeleteMutationList deletes name remotely and locally. The selection is
// cleared when it pointed at name.
func (s *Store) DeleteMutationList(ctx context.Context, name string) (err error) {
	unlockLists := s.keys.Lock(keyLists)
	defer unlockLists()
	unlockList := s.keys.Lock(listKey(name))
	defer unlockList()

	start := s.begin()
	defer func() { s.finish(actionDeleteList, msgDeleteList, start, err, logger.ListName(name)) }()

	if err = s.remote.DeleteMutationList(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.state.MutationLists[:0]
	for _, l := range s.state.MutationLists {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	s.state.MutationLists = kept
	if s.state.SelectedListName == name {
		s.state.SelectedListName = ""
	}
	s.mu.Unlock()
	return nil
}

// AddMutationToList sends the list's membership plus mutationID, without
// duplicates, and appends mutationID locally when it is not a member yet.
func (s *Store) AddMutationToList(ctx context.Context, listName, mutationID string) (err error) {
	unlock := s.keys.Lock(listKey(listName))
	defer unlock()

	start := s.begin()
	defer func() {
		s.finish(actionAddMutation, msgAddMutation, start, err, logger.ListName(listName), logger.MutationID(mutationID))
	}()

	list, ok := s.lookupList(listName)
	if !ok {
		return ErrListNotFound
	}
	members := dedupe(append(list.Mutations, mutationID))

	if err = s.remote.AddMutationToList(ctx, listName, members); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.state.indexOfList(listName); idx >= 0 && !s.state.MutationLists[idx].Contains(mutationID) {
		s.state.MutationLists[idx].Mutations = append(s.state.MutationLists[idx].Mutations, mutationID)
	}
	s.mu.Unlock()
	return nil
}

// RemoveMutationFromList asks the server to drop mutationID from listName and
// filters it out of the local membership.
func (s *Store) RemoveMutationFromList(ctx context.Context, listName, mutationID string) (err error) {
	unlock := s.keys.Lock(listKey(listName))
	defer unlock()

	start := s.begin()
	defer func() {
		s.finish(actionRemoveMutation, msgRemoveMutation, start, err, logger.ListName(listName), logger.MutationID(mutationID))
	}()

	if _, ok := s.lookupList(listName); !ok {
		return ErrListNotFound
	}
	if err = s.remote.RemoveMutationFromList(ctx, listName, []string{mutationID}); err != nil {
		return err
	}

	s.mu.Lock()
	if idx := s.state.indexOfList(listName); idx >= 0 {
		kept := make([]string, 0, len(s.state.MutationLists[idx].Mutations))
		for _, id := range s.state.MutationLists[idx].Mutations {
			if id != mutationID {
				kept = append(kept, id)
			}
		}
		s.state.MutationLists[idx].Mutations = kept
	}
	s.mu.Unlock()
	return nil
}

// Refresh loads the first mutation page and the lists concurrently and
// returns the first error.
func (s *Store) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return s.LoadMutationsPage(ctx, 0) })
	g.Go(func() error { return s.LoadMutationLists(ctx) })
	return g.Wait()
}

// IsListNotFound reports whether err is ErrListNotFound.
func IsListNotFound(err error) bool {
	return errors.Is(err, ErrListNotFound)
}

func (s *Store) lookupList(name string) (mutations.MutationList, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.state.indexOfList(name)
	if idx < 0 {
		return mutations.MutationList{}, false
	}
	return s.state.MutationLists[idx].Clone(), true
}

func normalizeList(l mutations.MutationList) mutations.MutationList {
	l = l.Clone()
	if l.Mutations == nil {
		l.Mutations = []string{}
	}
	return l
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
