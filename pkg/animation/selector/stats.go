package selector

import (
	"sync"
	"time"

	"mercator-hq/subtitler/pkg/cache"
)

// RuleStats are the historical counters of one rule.
type RuleStats struct {
	Evaluations int64         `json:"evaluations"`
	Matches     int64         `json:"matches"`
	Selected    int64         `json:"selected"`
	Errors      int64         `json:"errors"`
	Conflicts   int64         `json:"conflicts"`
	TotalTime   time.Duration `json:"totalTime,omitempty"`
}

// TemplateStats are the historical counters of one template.
type TemplateStats struct {
	Applications int64                `json:"applications"`
	Rules        map[string]RuleStats `json:"rules"`
}

// StatsSnapshot is a point-in-time copy of a selector's counters. Changing
// it does not affect the selector.
//
// Per-template and per-rule counters survive ClearCaches; only ResetStats
// clears them.
type StatsSnapshot struct {
	Applications        int64         `json:"applications"`
	Successful          int64         `json:"successful"`
	Failed              int64         `json:"failed"`
	Partial             int64         `json:"partial"`
	WordsProcessed      int64         `json:"wordsProcessed"`
	WordsSkipped        int64         `json:"wordsSkipped"`
	RulesEvaluated      int64         `json:"rulesEvaluated"`
	AnimationsApplied   int64         `json:"animationsApplied"`
	TotalProcessingTime time.Duration `json:"totalProcessingTime"`

	CompiledCache cache.Stats `json:"compiledCache"`
	VariableCache cache.Stats `json:"variableCache"`

	Templates map[string]TemplateStats `json:"templates"`
}

// statsRecorder accumulates counters across applications.
type statsRecorder struct {
	mu       sync.Mutex
	totals   StatsSnapshot
	template map[string]*templateCounters
}

type templateCounters struct {
	applications int64
	rules        map[string]*RuleStats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{template: make(map[string]*templateCounters)}
}

// record folds one application into the totals.
func (r *statsRecorder) record(result *TemplateApplicationResult, rules map[string]*RuleStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &r.totals
	t.Applications++
	switch {
	case !result.Success:
		t.Failed++
	case result.Partial:
		t.Partial++
		t.Successful++
	default:
		t.Successful++
	}
	perf := result.Performance
	t.WordsProcessed += int64(perf.WordsProcessed)
	t.WordsSkipped += int64(perf.WordsSkipped)
	t.RulesEvaluated += int64(perf.RulesEvaluated)
	t.AnimationsApplied += int64(perf.AnimationsApplied)
	t.TotalProcessingTime += perf.ProcessingTime

	if result.TemplateID == "" {
		return
	}
	tc, ok := r.template[result.TemplateID]
	if !ok {
		tc = &templateCounters{rules: make(map[string]*RuleStats)}
		r.template[result.TemplateID] = tc
	}
	tc.applications++
	for id, delta := range rules {
		rs, ok := tc.rules[id]
		if !ok {
			rs = &RuleStats{}
			tc.rules[id] = rs
		}
		rs.Evaluations += delta.Evaluations
		rs.Matches += delta.Matches
		rs.Selected += delta.Selected
		rs.Errors += delta.Errors
		rs.Conflicts += delta.Conflicts
		rs.TotalTime += delta.TotalTime
	}
}

func (r *statsRecorder) snapshot() StatsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.totals
	s.Templates = make(map[string]TemplateStats, len(r.template))
	for id, tc := range r.template {
		ts := TemplateStats{
			Applications: tc.applications,
			Rules:        make(map[string]RuleStats, len(tc.rules)),
		}
		for rid, rs := range tc.rules {
			ts.Rules[rid] = *rs
		}
		s.Templates[id] = ts
	}
	return s
}

func (r *statsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals = StatsSnapshot{}
	clear(r.template)
}
