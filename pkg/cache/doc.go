// Package cache provides a generic LRU cache with memoized computation.
//
// It backs the compiled-template cache and the variable store. Both key
// entries by stable identifiers (template id, variable name, transcript
// fingerprint), so invalidation by key or by predicate is enough to drop one
// template's state.
//
//	c := cache.New[string, *Compiled](256)
//	v, hit, err := c.GetOrCompute(id, func() (*Compiled, error) {
//		return compile(tpl)
//	})
package cache
