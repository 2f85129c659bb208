package metrics

import (
	"sync"
	"time"

	"mercator-hq/subtitler/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Status labels for template applications.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Result labels for template loads.
const (
	LoadLoaded  = "loaded"
	LoadInvalid = "invalid"
	LoadRemoved = "removed"
)

// OtherLabel replaces label values past the cardinality limit.
const OtherLabel = "other"

// DefaultMaxCardinality bounds the number of distinct rule/template label
// sets tracked per collector.
const DefaultMaxCardinality = 10000

// Collector owns every Prometheus metric recorded by the animation selector.
// It manages metric registration and provides one entry point for the
// selector, the compiled-template cache and the template watcher.
//
// A nil *Collector is valid and records nothing, so components can take an
// optional collector without guarding every call.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Template application metrics
	applicationMetrics *ApplicationMetrics

	// Rule evaluation metrics
	ruleMetrics *RuleMetrics

	// Compiled template and variable cache metrics
	cacheMetrics *CacheMetrics

	// Cardinality tracking for rule and template labels
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "subtitler",
//		Subsystem: "selector",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}

	c.applicationMetrics = NewApplicationMetrics(cfg, registry)
	c.ruleMetrics = NewRuleMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// limit maps a label value past the cardinality limit to OtherLabel.
func (c *Collector) limit(kind, value string) string {
	if c.cardinalityLimiter.Allow(kind + ":" + value) {
		return value
	}
	return OtherLabel
}

// RecordApplication records a finished template application.
//
// Parameters:
//   - templateID: Template identifier
//   - status: StatusSuccess, StatusPartial or StatusFailed
//   - duration: Wall time of the application
//   - evaluated: Words whose rules were evaluated
//   - skipped: Words skipped for low confidence
//   - animations: Animations selected across all words
func (c *Collector) RecordApplication(templateID, status string, duration time.Duration, evaluated, skipped, animations int) {
	if !c.enabled() {
		return
	}

	templateID = c.limit("template", templateID)
	c.applicationMetrics.RecordApplication(templateID, status, duration)
	c.applicationMetrics.RecordWords(templateID, evaluated, skipped)
	c.applicationMetrics.RecordAnimations(templateID, animations)
}

// RecordRuleOutcome records whether a rule matched a word.
func (c *Collector) RecordRuleOutcome(ruleID string, matched bool) {
	if !c.enabled() {
		return
	}

	ruleID = c.limit("rule", ruleID)
	if matched {
		c.ruleMetrics.RecordHit(ruleID)
	} else {
		c.ruleMetrics.RecordMiss(ruleID)
	}
}

// RecordRuleError records a failed condition or intensity evaluation.
//
// Parameters:
//   - ruleID: Rule identifier
//   - phase: "condition" or "intensity"
func (c *Collector) RecordRuleError(ruleID, phase string) {
	if !c.enabled() {
		return
	}

	c.ruleMetrics.RecordError(c.limit("rule", ruleID), phase)
}

// RecordConflict records a resolved conflict within a rule group.
func (c *Collector) RecordConflict(group string) {
	if !c.enabled() {
		return
	}

	c.ruleMetrics.RecordConflict(c.limit("group", group))
}

// RecordTemplateLoad records a template (re)load from a source.
//
// Parameters:
//   - result: LoadLoaded, LoadInvalid or LoadRemoved
func (c *Collector) RecordTemplateLoad(result string) {
	if !c.enabled() {
		return
	}

	c.applicationMetrics.RecordTemplateLoad(result)
}

// RecordCacheHit records a cache hit.
//
// Parameters:
//   - cacheName: Name of the cache ("compiled", "variables")
func (c *Collector) RecordCacheHit(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheName string) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordMiss(cacheName)
}

// UpdateCacheStats publishes a cache's size and its eviction count since the
// previous call.
func (c *Collector) UpdateCacheStats(cacheName string, size int, evictions int64) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.UpdateSize(cacheName, size)
	c.cacheMetrics.SyncEvictions(cacheName, evictions)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
