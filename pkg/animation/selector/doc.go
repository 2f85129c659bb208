// Package selector applies animation templates to transcripts.
//
// A Selector compiles a template (or reuses its cached compilation),
// computes the template variables over the transcript, then evaluates the
// rule set for every word and collects the selected animations in document
// order:
//
//	s := selector.New(selector.WithLogger(logger), selector.WithMetrics(collector))
//	result := s.ApplyTemplate(ctx, tpl, audio, nil)
//	for _, applied := range result.AppliedRules {
//		render(applied.WordID, applied.Animation)
//	}
//
// # Failure Handling
//
// ApplyTemplate always returns a result. Validation errors stop the run
// before any rule is evaluated. A rule or variable that fails for some word
// only produces a warning; the other rules and words are unaffected. When
// the options carry a timeout, or the context is cancelled, the words
// evaluated so far are returned with Partial set.
//
// # Caching
//
// Compiled templates are cached by template ID and variables declared
// cached are memoized per (template, variable, transcript fingerprint). Call
// Invalidate when a template's source changes; ClearCaches drops both
// caches but keeps the statistics returned by Stats.
package selector
