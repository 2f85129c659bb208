package history

import (
	"time"

	"github.com/google/uuid"

	"mercator-hq/subtitler/pkg/animation/selector"
)

// Record summarizes one template application. It carries the counters of
// the run, not the applied animations themselves.
type Record struct {
	ID              string `json:"id"`
	RunID           string `json:"runId"`
	TemplateID      string `json:"templateId"`
	TemplateVersion string `json:"templateVersion,omitempty"`
	TranscriptID    string `json:"transcriptId,omitempty"`

	// Status is one of the metrics status labels: success, partial or failed.
	Status  string `json:"status"`
	Phase   string `json:"phase"`
	Partial bool   `json:"partial,omitempty"`

	WordsProcessed    int `json:"wordsProcessed"`
	WordsSkipped      int `json:"wordsSkipped"`
	RulesEvaluated    int `json:"rulesEvaluated"`
	AnimationsApplied int `json:"animationsApplied"`
	Errors            int `json:"errors"`
	Warnings          int `json:"warnings"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"startedAt"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// NewRecord builds the record of result with a fresh ID.
func NewRecord(result *selector.TemplateApplicationResult) *Record {
	perf := result.Performance
	return &Record{
		ID:                uuid.NewString(),
		RunID:             result.RunID,
		TemplateID:        result.TemplateID,
		TemplateVersion:   result.TemplateVersion,
		TranscriptID:      result.TranscriptID,
		Status:            result.Status(),
		Phase:             string(result.Phase),
		Partial:           result.Partial,
		WordsProcessed:    perf.WordsProcessed,
		WordsSkipped:      perf.WordsSkipped,
		RulesEvaluated:    perf.RulesEvaluated,
		AnimationsApplied: perf.AnimationsApplied,
		Errors:            len(result.Errors),
		Warnings:          len(result.Warnings),
		Duration:          perf.ProcessingTime,
		StartedAt:         result.StartedAt,
		RecordedAt:        time.Now(),
	}
}

// Query filters records. Zero fields match everything. Results are ordered
// newest first by start time.
type Query struct {
	TemplateID string
	Status     string

	// Since and Until bound StartedAt, both inclusive.
	Since *time.Time
	Until *time.Time

	Limit  int
	Offset int
}

func (q *Query) matches(r *Record) bool {
	if q == nil {
		return true
	}
	if q.TemplateID != "" && r.TemplateID != q.TemplateID {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Since != nil && r.StartedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.StartedAt.After(*q.Until) {
		return false
	}
	return true
}
