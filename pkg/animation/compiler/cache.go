package compiler

import (
	"fmt"

	"mercator-hq/subtitler/pkg/cache"
	"mercator-hq/subtitler/pkg/stl/ast"
)

// DefaultCacheCapacity is the number of compiled templates kept by default.
const DefaultCacheCapacity = 256

// Cache memoizes compiled templates by template ID. Concurrent first
// compilations of one ID share a single compilation.
//
// Entries are keyed by ID only: a template edited in place must be
// invalidated (or given a new ID) to be recompiled.
type Cache struct {
	compiler *Compiler
	lru      *cache.LRU[string, *CompiledTemplate]
}

// NewCache creates a cache holding at most capacity templates
// (0 = unbounded). A nil compiler uses NewCompiler(nil).
func NewCache(capacity int, compiler *Compiler) *Cache {
	if compiler == nil {
		compiler = NewCompiler(nil)
	}
	return &Cache{
		compiler: compiler,
		lru:      cache.New[string, *CompiledTemplate](capacity),
	}
}

// Get returns the compiled template for tpl, compiling it on a miss. hit
// reports whether the compilation was reused. Templates without an ID are
// compiled every time and never cached.
func (c *Cache) Get(tpl *ast.Template) (compiled *CompiledTemplate, hit bool, err error) {
	if tpl == nil || tpl.ID == "" {
		return c.compiler.Compile(tpl), false, nil
	}

	compiled, hit, err = c.lru.GetOrCompute(tpl.ID, func() (*CompiledTemplate, error) {
		return c.compiler.Compile(tpl), nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("compile template %q: %w", tpl.ID, err)
	}
	return compiled, hit, nil
}

// Compiler returns the compiler used on cache misses.
func (c *Cache) Compiler() *Compiler {
	return c.compiler
}

// Invalidate drops one template and reports whether it was cached.
func (c *Cache) Invalidate(templateID string) bool {
	return c.lru.Invalidate(templateID)
}

// Clear drops every compiled template.
func (c *Cache) Clear() {
	c.lru.Clear()
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Stats returns the cache counters.
func (c *Cache) Stats() cache.Stats {
	return c.lru.Stats()
}
