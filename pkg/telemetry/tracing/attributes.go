package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on selector spans.
const (
	AttrRunID        = "subtitler.run_id"
	AttrTemplateID   = "subtitler.template.id"
	AttrTemplateVer  = "subtitler.template.version"
	AttrTranscriptID = "subtitler.transcript.id"
	AttrPhase        = "subtitler.phase"

	AttrWordsTotal     = "subtitler.words.total"
	AttrWordsEvaluated = "subtitler.words.evaluated"
	AttrWordsSkipped   = "subtitler.words.skipped"

	AttrRulesEvaluated = "subtitler.rules.evaluated"
	AttrRulesMatched   = "subtitler.rules.matched"
	AttrAnimations     = "subtitler.animations.selected"
	AttrConflicts      = "subtitler.conflicts"

	AttrCacheHit = "subtitler.cache.hit"
	AttrPartial  = "subtitler.partial"
)

// SetTemplateAttributes sets the template identity on a span.
//
// Example:
//
//	SetTemplateAttributes(span, "run-123", "emphasis", "2", "clip-42")
func SetTemplateAttributes(span trace.Span, runID, templateID, version, transcriptID string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRunID, runID),
		attribute.String(AttrTemplateID, templateID),
	}
	if version != "" {
		attrs = append(attrs, attribute.String(AttrTemplateVer, version))
	}
	if transcriptID != "" {
		attrs = append(attrs, attribute.String(AttrTranscriptID, transcriptID))
	}
	span.SetAttributes(attrs...)
}

// SetWordAttributes sets word counts on a span.
func SetWordAttributes(span trace.Span, total, evaluated, skipped int) {
	span.SetAttributes(
		attribute.Int(AttrWordsTotal, total),
		attribute.Int(AttrWordsEvaluated, evaluated),
		attribute.Int(AttrWordsSkipped, skipped),
	)
}

// SetSelectionAttributes sets rule and animation counts on a span.
func SetSelectionAttributes(span trace.Span, rulesEvaluated, rulesMatched, animations, conflicts int) {
	span.SetAttributes(
		attribute.Int(AttrRulesEvaluated, rulesEvaluated),
		attribute.Int(AttrRulesMatched, rulesMatched),
		attribute.Int(AttrAnimations, animations),
		attribute.Int(AttrConflicts, conflicts),
	)
}
