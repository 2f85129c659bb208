package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for template application run IDs.
	RunIDKey contextKey = "run_id"

	// TemplateIDKey is the context key for template identifiers.
	TemplateIDKey contextKey = "template_id"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithTemplateID adds a template ID to the context.
func WithTemplateID(ctx context.Context, templateID string) context.Context {
	return context.WithValue(ctx, TemplateIDKey, templateID)
}

// GetTemplateID retrieves the template ID from the context.
func GetTemplateID(ctx context.Context) string {
	if templateID, ok := ctx.Value(TemplateIDKey).(string); ok {
		return templateID
	}
	return ""
}
