package cli

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/animation/selector"
	"mercator-hq/subtitler/pkg/history"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// ResultView renders an application result: a summary, the applied rules
// in document order and the issues when there are any.
func ResultView(result *selector.TemplateApplicationResult) View {
	perf := result.Performance
	summary := Table{
		Title:   "Template " + orDash(result.TemplateID),
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Run", result.RunID},
			{"Transcript", orDash(result.TranscriptID)},
			{"Status", result.Status()},
			{"Phase", string(result.Phase)},
			{"Words", fmt.Sprintf("%d processed, %d skipped", perf.WordsProcessed, perf.WordsSkipped)},
			{"Rules evaluated", strconv.Itoa(perf.RulesEvaluated)},
			{"Animations", strconv.Itoa(perf.AnimationsApplied)},
			{"Compile cache", hitMiss(perf.CompileCacheHit)},
			{"Variables", fmt.Sprintf("%d computed, %d cached", perf.VariablesComputed, perf.VariablesFromCache)},
			{"Duration", perf.ProcessingTime.Round(time.Microsecond).String()},
		},
	}

	applied := Table{
		Title:      "Applied animations",
		Headers:    []string{"#", "Word", "Rule", "Animation", "Intensity", "Timing"},
		AlignRight: []int{0, 4},
	}
	for _, a := range result.AppliedRules {
		applied.Rows = append(applied.Rows, []string{
			strconv.Itoa(a.WordIndex),
			a.WordID,
			a.RuleID,
			a.Animation.PluginName,
			strconv.FormatFloat(a.Animation.Intensity, 'f', 2, 64),
			timingString(a.Animation.Timing),
		})
	}

	tables := []Table{summary, applied}
	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		tables = append(tables, issueTable(result))
	}
	if len(perf.RuleTimings) > 0 {
		tables = append(tables, ruleTimingTable(perf.RuleTimings))
	}
	return View{Data: result, Tables: tables}
}

func issueTable(result *selector.TemplateApplicationResult) Table {
	t := Table{
		Title:   "Issues",
		Headers: []string{"Severity", "Kind", "Rule", "Word", "Message"},
	}
	add := func(severity string, issues []selector.Issue) {
		for _, is := range issues {
			subject := is.RuleID
			if subject == "" {
				subject = is.Variable
			}
			t.Rows = append(t.Rows, []string{severity, string(is.Kind), orDash(subject), orDash(is.WordID), is.Message})
		}
	}
	add("error", result.Errors)
	add("warning", result.Warnings)
	return t
}

func ruleTimingTable(timings []selector.RuleTiming) Table {
	t := Table{
		Title:      "Rule timings",
		Headers:    []string{"Rule", "Evaluations", "Matches", "Total", "Mean"},
		AlignRight: []int{1, 2, 3, 4},
	}
	for _, rt := range timings {
		t.Rows = append(t.Rows, []string{
			rt.RuleID,
			strconv.Itoa(rt.Evaluations),
			strconv.Itoa(rt.Matches),
			rt.Total.String(),
			rt.Mean.String(),
		})
	}
	return t
}

// ValidationView renders the reports of validated templates: one summary
// row per template, then every error and warning with its location.
func ValidationView(reports []*compiler.ValidationReport) View {
	summary := Table{
		Title:      "Templates",
		Headers:    []string{"Template", "Valid", "Rules", "Variables", "Complexity", "Errors", "Warnings"},
		AlignRight: []int{2, 3, 5, 6},
	}
	issues := Table{
		Title:   "Findings",
		Headers: []string{"Template", "Severity", "Type", "Rule", "Location", "Message"},
	}

	for _, r := range reports {
		valid := "yes"
		if !r.Valid {
			valid = "no"
		}
		summary.Rows = append(summary.Rows, []string{
			orDash(r.TemplateID),
			valid,
			strconv.Itoa(r.RuleCount),
			strconv.Itoa(r.VariableCount),
			fmt.Sprintf("%s (%d)", r.Complexity.Class, r.Complexity.Score),
			strconv.Itoa(len(r.Errors)),
			strconv.Itoa(len(r.Warnings)),
		})
		issues.Rows = append(issues.Rows, findingRows(r.TemplateID, "error", r.Errors)...)
		issues.Rows = append(issues.Rows, findingRows(r.TemplateID, "warning", r.Warnings)...)
	}

	tables := []Table{summary}
	if len(issues.Rows) > 0 {
		tables = append(tables, issues)
	}
	return View{Data: reports, Tables: tables}
}

func findingRows(templateID, severity string, errs []*stlErrors.Error) [][]string {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		location := ""
		if e.Location.IsValid() {
			location = e.Location.String()
		}
		message := e.Message
		if e.Suggestion != "" {
			message += " (" + e.Suggestion + ")"
		}
		rows = append(rows, []string{
			orDash(templateID),
			severity,
			string(e.Type),
			orDash(e.RuleID),
			orDash(location),
			message,
		})
	}
	return rows
}

// HistoryView renders history records, newest first as stored.
func HistoryView(records []*history.Record) View {
	t := Table{
		Title:      "Application history",
		Headers:    []string{"Started", "Run", "Template", "Transcript", "Status", "Words", "Animations", "Issues", "Duration"},
		AlignRight: []int{5, 6, 7, 8},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.StartedAt.Format(time.DateTime),
			shortID(r.RunID),
			r.TemplateID,
			orDash(r.TranscriptID),
			r.Status,
			strconv.Itoa(r.WordsProcessed),
			strconv.Itoa(r.AnimationsApplied),
			fmt.Sprintf("%d/%d", r.Errors, r.Warnings),
			r.Duration.Round(time.Microsecond).String(),
		})
	}
	return View{Data: records, Tables: []Table{t}}
}

// StatsView renders a selector's cumulative statistics with per-rule rows
// sorted by template and rule.
func StatsView(snap selector.StatsSnapshot) View {
	totals := Table{
		Title:   "Selector statistics",
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Applications", fmt.Sprintf("%d (%d ok, %d partial, %d failed)", snap.Applications, snap.Successful, snap.Partial, snap.Failed)},
			{"Words", fmt.Sprintf("%d processed, %d skipped", snap.WordsProcessed, snap.WordsSkipped)},
			{"Rules evaluated", strconv.FormatInt(snap.RulesEvaluated, 10)},
			{"Animations", strconv.FormatInt(snap.AnimationsApplied, 10)},
			{"Compiled cache", fmt.Sprintf("%d/%d, %d hits, %d misses", snap.CompiledCache.Size, snap.CompiledCache.Capacity, snap.CompiledCache.Hits, snap.CompiledCache.Misses)},
			{"Variable cache", fmt.Sprintf("%d/%d, %d hits, %d misses", snap.VariableCache.Size, snap.VariableCache.Capacity, snap.VariableCache.Hits, snap.VariableCache.Misses)},
			{"Processing time", snap.TotalProcessingTime.String()},
		},
	}

	rules := Table{
		Title:      "Rules",
		Headers:    []string{"Template", "Rule", "Evaluations", "Matches", "Selected", "Conflicts", "Errors"},
		AlignRight: []int{2, 3, 4, 5, 6},
	}
	for _, templateID := range sortedKeys(snap.Templates) {
		ts := snap.Templates[templateID]
		for _, ruleID := range sortedKeys(ts.Rules) {
			rs := ts.Rules[ruleID]
			rules.Rows = append(rules.Rows, []string{
				templateID,
				ruleID,
				strconv.FormatInt(rs.Evaluations, 10),
				strconv.FormatInt(rs.Matches, 10),
				strconv.FormatInt(rs.Selected, 10),
				strconv.FormatInt(rs.Conflicts, 10),
				strconv.FormatInt(rs.Errors, 10),
			})
		}
	}
	return View{Data: snap, Tables: []Table{totals, rules}}
}

func timingString(t selector.Timing) string {
	var parts []string
	if len(t.Offset) > 0 {
		parts = append(parts, "offset "+strings.Join(t.Offset, ".."))
	}
	if t.Duration != "" {
		parts = append(parts, "for "+t.Duration)
	}
	if t.Delay != "" {
		parts = append(parts, "delay "+t.Delay)
	}
	if t.Easing != "" {
		parts = append(parts, t.Easing)
	}
	if t.Stagger != "" {
		parts = append(parts, "stagger "+t.Stagger)
	}
	return orDash(strings.Join(parts, ", "))
}

func hitMiss(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
