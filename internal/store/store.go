// Package store implements the BachT coordination store: a counted
// multiset of tokens with the four atomic primitive operations.
package store

import (
	"math"
	"sync"

	"github.com/haricheung/agentic-shell/internal/ast"
)

// MaxCount is the saturation ceiling for a token's occurrence count.
// It is the native unsigned 32-bit maximum, per spec.
const MaxCount = math.MaxUint32

// Store is a mapping from ast.Token to a non-negative occurrence
// count. It is the sole authority over those counts — no other
// component caches them. All operations are atomic read-modify(-write)
// steps guarded by a single mutex, matching the single-writer
// discipline the worker (internal/worker) enforces at the next layer
// up: at most one goroutine (the worker) ever mutates it, while
// read-only observers such as Snapshot callers may read concurrently.
type Store struct {
	mu   sync.Mutex
	data map[ast.Token]uint32
	max  uint32
}

// New creates an empty Store that saturates at MaxCount.
func New() *Store {
	return NewWithMax(MaxCount)
}

// NewWithMax creates an empty Store that saturates at max instead of
// the default MaxCount, honoring the BACHT_MAX_COUNT override
// (internal/config).
func NewWithMax(max uint32) *Store {
	return &Store{data: make(map[ast.Token]uint32), max: max}
}

// Tell increments tok's count, saturating at the store's configured
// ceiling. Always succeeds.
func (s *Store) Tell(tok ast.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[tok] < s.max {
		s.data[tok]++
	}
	return true
}

// Ask reports whether tok's count is >= 1. Non-mutating.
func (s *Store) Ask(tok ast.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[tok] >= 1
}

// Get decrements tok's count by one and returns true if it was >= 1;
// otherwise it returns false and leaves the store unchanged.
func (s *Store) Get(tok ast.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[tok] >= 1 {
		s.data[tok]--
		return true
	}
	return false
}

// Nask reports whether tok's count is 0, including when tok is
// absent entirely. Non-mutating.
func (s *Store) Nask(tok ast.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[tok] == 0
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[ast.Token]uint32)
}

// Snapshot returns a copy of the store's current contents, for
// display/debugging only (internal/display). It never observes a
// count of 0 for a present-but-empty key — those are indistinguishable
// from absence per the primitive contract, so zero-count keys are
// omitted.
func (s *Store) Snapshot() map[ast.Token]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ast.Token]uint32, len(s.data))
	for tok, count := range s.data {
		if count > 0 {
			out[tok] = count
		}
	}
	return out
}
