package templates

import (
	"context"
	"slices"
	"strings"
	"sync"

	"mercator-hq/subtitler/pkg/stl/ast"
)

// Source provides the current set of templates.
type Source interface {
	// Load returns every template of the source. A non-nil error next to
	// templates means some documents failed and the rest loaded.
	Load(ctx context.Context) ([]*ast.Template, error)

	// String describes the source in logs.
	String() string
}

// DirSource loads templates from a directory tree.
type DirSource struct {
	dir    string
	loader *Loader
}

// NewDirSource creates a source for dir. A nil loader uses the default
// document size limit.
func NewDirSource(dir string, loader *Loader) *DirSource {
	if loader == nil {
		loader = NewLoader(defaultMaxFileSize)
	}
	return &DirSource{dir: dir, loader: loader}
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// Load implements Source.
func (s *DirSource) Load(ctx context.Context) ([]*ast.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.loader.LoadDir(s.dir)
}

func (s *DirSource) String() string {
	return "dir:" + s.dir
}

// MemorySource holds templates in memory. It is safe for concurrent use.
type MemorySource struct {
	mu        sync.RWMutex
	templates map[string]*ast.Template
}

// NewMemorySource creates a source holding tpls.
func NewMemorySource(tpls ...*ast.Template) *MemorySource {
	s := &MemorySource{templates: make(map[string]*ast.Template, len(tpls))}
	for _, tpl := range tpls {
		s.Put(tpl)
	}
	return s
}

// Put adds or replaces a template. Templates without an id are ignored.
func (s *MemorySource) Put(tpl *ast.Template) {
	if tpl == nil || tpl.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[tpl.ID] = tpl
}

// Delete removes a template.
func (s *MemorySource) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
}

// Load implements Source. Templates are returned sorted by id.
func (s *MemorySource) Load(ctx context.Context) ([]*ast.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ast.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	slices.SortFunc(out, func(a, b *ast.Template) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemorySource) String() string {
	return "memory"
}
