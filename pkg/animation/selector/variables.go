package selector

import (
	"mercator-hq/subtitler/pkg/animation/eval"
	"mercator-hq/subtitler/pkg/cache"
)

// DefaultVariableCacheSize is the number of cached variable values kept by
// a selector's own store.
const DefaultVariableCacheSize = 4096

// VariableKey identifies a cached variable value: the variable of one
// template computed over one transcript.
type VariableKey struct {
	TemplateID  string
	Name        string
	Fingerprint string
}

// VariableStore memoizes the values of variables declared cached. It is an
// explicit handle: a selector owns one unless a shared store is passed with
// WithVariableStore. Failed computations are never stored.
//
// Values are keyed by the transcript fingerprint. Transcripts carrying the
// same ID share cached values even when their words differ; leave ID empty
// to key by content instead.
type VariableStore struct {
	lru *cache.LRU[VariableKey, eval.Value]
}

// NewVariableStore creates a store holding at most capacity values
// (0 = unbounded).
func NewVariableStore(capacity int) *VariableStore {
	return &VariableStore{lru: cache.New[VariableKey, eval.Value](capacity)}
}

// GetOrCompute returns the stored value for key or computes and stores it.
// hit reports whether the value was reused.
func (s *VariableStore) GetOrCompute(key VariableKey, compute func() (eval.Value, error)) (v eval.Value, hit bool, err error) {
	return s.lru.GetOrCompute(key, compute)
}

// Get returns a stored value.
func (s *VariableStore) Get(key VariableKey) (eval.Value, bool) {
	return s.lru.Get(key)
}

// InvalidateTemplate drops every value of one template and returns how many
// were dropped.
func (s *VariableStore) InvalidateTemplate(templateID string) int {
	return s.lru.InvalidateFunc(func(k VariableKey) bool {
		return k.TemplateID == templateID
	})
}

// Clear drops every value.
func (s *VariableStore) Clear() {
	s.lru.Clear()
}

// Len returns the number of stored values.
func (s *VariableStore) Len() int {
	return s.lru.Len()
}

// Stats returns the store's cache counters.
func (s *VariableStore) Stats() cache.Stats {
	return s.lru.Stats()
}
