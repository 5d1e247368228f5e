package env

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/funvibe/bridje/internal/symbols"
)

// RuntimeEnv is an immutable snapshot of every loaded namespace. Each
// Merge produces the next version.
type RuntimeEnv struct {
	Version    uint64
	namespaces *PersistentMap[*symbols.Symbol, *NSEnv]
}

func NewRuntimeEnv() *RuntimeEnv {
	return &RuntimeEnv{namespaces: EmptyMap[*symbols.Symbol, *NSEnv](symbolHash)}
}

// Merge returns the next version with ns added or replaced.
func (e *RuntimeEnv) Merge(ns *NSEnv) *RuntimeEnv {
	return &RuntimeEnv{Version: e.Version + 1, namespaces: e.namespaces.Put(ns.NS, ns)}
}

func (e *RuntimeEnv) NS(sym *symbols.Symbol) (*NSEnv, bool) {
	return e.namespaces.Get(sym)
}

func (e *RuntimeEnv) Has(sym *symbols.Symbol) bool {
	_, ok := e.namespaces.Get(sym)
	return ok
}

// Lookup resolves a qualified symbol directly against its namespace.
func (e *RuntimeEnv) Lookup(q *symbols.QSymbol) (GlobalVar, bool) {
	ns, ok := e.namespaces.Get(q.NS)
	if !ok {
		return nil, false
	}
	return ns.Get(q.Base)
}

// Namespaces returns the loaded namespace names in order.
func (e *RuntimeEnv) Namespaces() []*symbols.Symbol {
	keys := e.namespaces.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Store holds the current RuntimeEnv. Readers take lock-free snapshots;
// writers serialise through Exclusive and publish whole snapshots.
//
// A writer stages its work first: the staged environment is what Working
// returns, so code running inside the request sees its own commits, while
// Snapshot keeps returning the last published version until Publish.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[RuntimeEnv]
	staged  atomic.Pointer[RuntimeEnv]
}

func NewStore(initial *RuntimeEnv) *Store {
	if initial == nil {
		initial = NewRuntimeEnv()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Snapshot returns the latest published environment.
func (s *Store) Snapshot() *RuntimeEnv {
	return s.current.Load()
}

// Working returns the staged environment of the running writer, or the
// published one when nothing is staged.
func (s *Store) Working() *RuntimeEnv {
	if env := s.staged.Load(); env != nil {
		return env
	}
	return s.current.Load()
}

// Exclusive runs fn while holding the single writer lock. Requires must
// run inside it so that their commits never interleave. Anything left
// staged when fn returns is discarded.
func (s *Store) Exclusive(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.Discard()
	return fn()
}

// Stage makes env visible to Working without publishing it. Only call
// inside Exclusive.
func (s *Store) Stage(env *RuntimeEnv) {
	s.staged.Store(env)
}

// Discard drops the staged environment.
func (s *Store) Discard() {
	s.staged.Store(nil)
}

// Publish makes env the current snapshot and clears anything staged. Only
// call inside Exclusive.
func (s *Store) Publish(env *RuntimeEnv) {
	s.current.Store(env)
	s.staged.Store(nil)
}
