package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/parseq/mutation_sdk_go/internal/httpx"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/internal/metrics"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

// ErrListNotFound is returned when an action names a list that is not in the
// local state. No request is sent in that case.
var ErrListNotFound = errors.New("List not found")

// Remote is the subset of *mutations.Client the store depends on.
type Remote interface {
	FetchMutations(ctx context.Context, pageNumber, pageSize int) (*mutations.MutationPage, error)
	FetchMutationLists(ctx context.Context) ([]mutations.MutationList, error)
	CreateMutationList(ctx context.Context, name string) (*mutations.MutationList, error)
	UpdateMutationList(ctx context.Context, listID, name, description string) (*mutations.MutationList, error)
	DeleteMutationList(ctx context.Context, listID string) error
	AddMutationToList(ctx context.Context, listName string, mutations []string) error
	RemoveMutationFromList(ctx context.Context, listName string, mutations []string) error
}

var _ Remote = (*mutations.Client)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for action outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPageSize sets the number of mutations requested per page.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.state.PageSize = n
		}
	}
}

// DefaultName labels the metrics of a store created without WithName.
const DefaultName = "default"

// WithName sets the store label on the cached mutations gauge. Stores sharing
// a name overwrite each other's value.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithReloadAfterCreate controls whether AddMutationList refetches every list
// after a successful create. Enabled by default.
func WithReloadAfterCreate(enabled bool) Option {
	return func(s *Store) {
		s.reloadAfterCreate = enabled
	}
}

// Store is the view state of the mutation API. It is safe for concurrent use.
type Store struct {
	remote            Remote
	name              string
	log               *zap.Logger
	reloadAfterCreate bool

	mu       sync.RWMutex
	state    State
	inflight int

	keys   *keyLock
	flight singleflight.Group

	subMu   sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

// New creates a store backed by remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:            remote,
		name:              DefaultName,
		log:               logger.Named("store"),
		reloadAfterCreate: true,
		state: State{
			Mutations:     []mutations.Mutation{},
			MutationLists: []mutations.MutationList{},
			PageSize:      mutations.DefaultPageSize,
		},
		keys: newKeyLock(),
		subs: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Loading reports whether at least one action is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Err returns the message recorded by the last failed action, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run on the goroutine that made the change and must not block.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// SetSelectedList selects the list called name. An empty name clears the
// selection.
func (s *Store) SetSelectedList(name string) {
	s.mu.Lock()
	s.state.SelectedListName = name
	s.mu.Unlock()
	s.notify()
}

// ClearSelectedList clears the selection.
func (s *Store) ClearSelectedList() {
	s.SetSelectedList("")
}

// SetFilterText sets the case-insensitive filter applied by FilteredMutations.
func (s *Store) SetFilterText(text string) {
	s.mu.Lock()
	s.state.FilterText = text
	s.mu.Unlock()
	s.notify()
}

func (s *Store) snapshotLocked() State {
	out := s.state.clone()
	out.Loading = s.inflight > 0
	return out
}

func (s *Store) notify() {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	snap := s.State()
	for _, fn := range fns {
		fn(snap)
	}
}

// begin clears the error and marks an action in flight.
func (s *Store) begin() time.Time {
	s.mu.Lock()
	s.state.Error = ""
	s.inflight++
	s.mu.Unlock()
	s.notify()
	return time.Now()
}

// finish releases the in-flight mark and records err, if any.
func (s *Store) finish(action, fallback string, start time.Time, err error, fields ...zap.Field) {
	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.state.Error = errorMessage(err, fallback)
	}
	s.mu.Unlock()

	metrics.ObserveAction(action, err)
	fields = append(fields, logger.Operation(action), logger.Duration(time.Since(start)))
	if err != nil {
		s.log.Warn(fallback, append(fields, zap.Error(err))...)
	} else {
		s.log.Debug("store action completed", fields...)
	}
	s.notify()
}

func errorMessage(err error, fallback string) string {
	var httpErr *httpx.HTTPError
	if errors.As(err, &httpErr) {
		if msg := httpErr.Message(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
