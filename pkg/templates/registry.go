package templates

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"mercator-hq/subtitler/pkg/stl/ast"
)

// Entry is a registered template.
type Entry struct {
	Template    *ast.Template
	Fingerprint string
	LoadedAt    time.Time
}

// Registry is the thread-safe set of active templates, keyed by id.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	version  string
	loadTime time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Get returns the template registered under id.
func (r *Registry) Get(id string) (*ast.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.Template, true
}

// Entry returns the registry entry for id.
func (r *Registry) Entry(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// List returns the registered templates sorted by id.
func (r *Registry) List() []*ast.Template {
	ids := r.IDs()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ast.Template, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, e.Template)
		}
	}
	return out
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Version identifies the registered set; it changes whenever any template
// does.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// LoadTime returns when the registered set last changed.
func (r *Registry) LoadTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadTime
}

// Replace swaps in a new template set and reports which ids were added or
// changed and which were removed. Templates whose fingerprint did not
// change keep their entry.
func (r *Registry) Replace(tpls []*ast.Template) (changed, removed []string) {
	now := time.Now()
	next := make(map[string]*Entry, len(tpls))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tpl := range tpls {
		fp := Fingerprint(tpl)
		if old, ok := r.entries[tpl.ID]; ok && old.Fingerprint == fp {
			next[tpl.ID] = old
			continue
		}
		next[tpl.ID] = &Entry{Template: tpl, Fingerprint: fp, LoadedAt: now}
		changed = append(changed, tpl.ID)
	}
	for id := range r.entries {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	slices.Sort(changed)
	slices.Sort(removed)

	r.entries = next
	if len(changed) > 0 || len(removed) > 0 || r.version == "" {
		r.version = r.computeVersion()
		r.loadTime = now
	}
	return changed, removed
}

// computeVersion must be called with mu held.
func (r *Registry) computeVersion() string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
		h.Write([]byte(r.entries[id].Fingerprint))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Fingerprint hashes the content of a template, source locations included.
func Fingerprint(tpl *ast.Template) string {
	if tpl == nil {
		return ""
	}
	data, err := json.Marshal(tpl)
	if err != nil {
		// Params hold only decoded document values, which always marshal.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
