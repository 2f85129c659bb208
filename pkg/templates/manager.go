package templates

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/telemetry/metrics"
)

// defaultMaxFileSize bounds template documents when no limit is configured.
const defaultMaxFileSize = 10 * 1024 * 1024

// Invalidator drops cached state derived from a template. The animation
// selector implements it.
type Invalidator interface {
	Invalidate(templateID string)
}

// ReloadSummary describes the outcome of one reload.
type ReloadSummary struct {
	Version string   // Registry version after the reload
	Changed []string // Added or modified templates
	Removed []string // Templates no longer provided by the source
	Invalid []string // Templates rejected by validation; previous versions stay active
	Failed  int      // Documents that could not be loaded
}

// Empty reports whether the reload changed nothing.
func (s *ReloadSummary) Empty() bool {
	return len(s.Changed) == 0 && len(s.Removed) == 0
}

// Manager keeps a Registry in sync with a Source. Only templates that pass
// validation are registered; an invalid edit keeps the previous version
// active. Every changed or removed template is invalidated downstream.
type Manager struct {
	source      Source
	registry    *Registry
	compiler    *compiler.Compiler
	invalidator Invalidator
	metrics     *metrics.Collector
	logger      *slog.Logger

	// reloadMu serializes reloads.
	reloadMu sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithInvalidator invalidates changed templates, typically on a selector.
func WithInvalidator(inv Invalidator) ManagerOption {
	return func(m *Manager) {
		m.invalidator = inv
	}
}

// WithMetrics records template load results.
func WithMetrics(collector *metrics.Collector) ManagerOption {
	return func(m *Manager) {
		m.metrics = collector
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager over source.
func NewManager(source Source, opts ...ManagerOption) *Manager {
	m := &Manager{
		source:   source,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.compiler = compiler.NewCompiler(m.logger)
	m.logger = m.logger.With("component", "templates", "source", source.String())
	return m
}

// Registry returns the registry of active templates.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Get returns an active template.
func (m *Manager) Get(id string) (*ast.Template, bool) {
	return m.registry.Get(id)
}

// Reload loads the source and swaps the valid templates into the registry.
// When the source fails entirely the registry is left untouched and the
// error is returned. Per-document failures are logged, counted in the
// summary and returned next to it.
func (m *Manager) Reload(ctx context.Context) (*ReloadSummary, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	loaded, loadErr := m.source.Load(ctx)
	var list *ErrorList
	if loadErr != nil && !errors.As(loadErr, &list) {
		m.logger.Error("template source failed", "error", loadErr)
		return nil, loadErr
	}

	summary := &ReloadSummary{}
	failedFiles := make(map[string]bool)
	if list != nil {
		summary.Failed = len(list.Errors)
		for _, err := range list.Errors {
			var le *LoadError
			if errors.As(err, &le) {
				failedFiles[le.FilePath] = true
			}
			m.metrics.RecordTemplateLoad(metrics.LoadInvalid)
			m.logger.Warn("template document failed to load", "error", err)
		}
	}

	next := make([]*ast.Template, 0, len(loaded))
	present := make(map[string]bool, len(loaded))
	for _, tpl := range loaded {
		present[tpl.ID] = true
		report := m.compiler.Validate(tpl)
		if report.Valid {
			next = append(next, tpl)
			continue
		}
		summary.Invalid = append(summary.Invalid, tpl.ID)
		m.metrics.RecordTemplateLoad(metrics.LoadInvalid)
		m.logger.Warn("template failed validation",
			"template_id", tpl.ID,
			"file", tpl.SourceFile,
			"errors", len(report.Errors),
		)
		// Keep serving the last valid version.
		if prev, ok := m.registry.Get(tpl.ID); ok {
			next = append(next, prev)
		}
	}

	// A document that no longer parses keeps its last valid templates too.
	for _, prev := range m.registry.List() {
		if !present[prev.ID] && prev.SourceFile != "" && failedFiles[prev.SourceFile] {
			next = append(next, prev)
		}
	}

	summary.Changed, summary.Removed = m.registry.Replace(next)
	summary.Version = m.registry.Version()

	for _, id := range summary.Changed {
		m.metrics.RecordTemplateLoad(metrics.LoadLoaded)
		m.invalidate(id)
	}
	for _, id := range summary.Removed {
		m.metrics.RecordTemplateLoad(metrics.LoadRemoved)
		m.invalidate(id)
	}

	m.logger.Info("templates reloaded",
		"templates", m.registry.Len(),
		"changed", len(summary.Changed),
		"removed", len(summary.Removed),
		"invalid", len(summary.Invalid),
		"failed", summary.Failed,
		"version", summary.Version,
	)
	return summary, loadErr
}

func (m *Manager) invalidate(id string) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(id)
	}
}

// Watch reloads on every burst of changes seen by w until ctx is done.
// onReload, when set, receives the summary of each reload that changed
// something.
func (m *Manager) Watch(ctx context.Context, w *Watcher, onReload func(*ReloadSummary)) error {
	return w.Watch(ctx, func() error {
		summary, err := m.Reload(ctx)
		if summary != nil && !summary.Empty() && onReload != nil {
			onReload(summary)
		}
		return err
	})
}
