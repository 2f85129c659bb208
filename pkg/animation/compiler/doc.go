// Package compiler compiles subtitle templates.
//
// Compilation parses every rule condition, intensity expression and
// variable, runs structural and semantic validation, computes rule
// specificity and orders variables by their dependencies. The result is an
// immutable CompiledTemplate; validation errors are data on it rather than
// returned errors.
//
// # Caching
//
// Cache memoizes compiled templates by template ID in an LRU (default
// capacity 256). Two callers compiling the same ID at once share one
// compilation. Invalidate drops one ID, Clear drops everything.
//
//	c := compiler.NewCache(compiler.DefaultCacheCapacity, nil)
//	compiled, hit, err := c.Get(tpl)
//	if err == nil && !compiled.Valid() {
//		// report compiled.ValidationErrors
//	}
package compiler
