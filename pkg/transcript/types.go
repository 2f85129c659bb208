package transcript

import "fmt"

// Word is a single transcribed word with timing and recognition confidence.
// Words are produced by the transcription pipeline and are never modified by
// the animation engine.
type Word struct {
	// ID is an optional stable identifier assigned by the transcription pipeline.
	// When empty, a positional identifier is derived (see WordID).
	ID string `json:"id,omitempty"`

	// Text is the word as recognised, including punctuation if any.
	Text string `json:"text"`

	// Start is the word start time in seconds.
	Start float64 `json:"start"`

	// End is the word end time in seconds.
	End float64 `json:"end"`

	// Confidence is the recogniser confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Emotion is an optional per-word emotion label ("happy", "angry", ...).
	Emotion string `json:"emotion,omitempty"`

	// Speaker is an optional speaker label.
	Speaker string `json:"speaker,omitempty"`

	// Features carries optional extra features (loudness, pitch, emphasis, ...).
	// Values are numbers, strings or booleans.
	Features map[string]any `json:"features,omitempty"`
}

// Duration returns the word duration in seconds.
func (w *Word) Duration() float64 {
	return w.End - w.Start
}

// Feature returns the named feature and whether it is present.
func (w *Word) Feature(name string) (any, bool) {
	if w.Features == nil {
		return nil, false
	}
	v, ok := w.Features[name]
	return v, ok
}

// Segment is an ordered run of words, typically one sentence or caption line.
type Segment struct {
	// ID is an optional segment identifier.
	ID string `json:"id,omitempty"`

	// Text is the full segment text.
	Text string `json:"text"`

	// Start is the segment start time in seconds.
	Start float64 `json:"start"`

	// End is the segment end time in seconds.
	End float64 `json:"end"`

	// Speaker is the speaker label for the segment.
	Speaker string `json:"speaker,omitempty"`

	// Emotion is the dominant emotion detected for the segment.
	Emotion string `json:"emotion,omitempty"`

	// Words are the segment words in spoken order.
	Words []Word `json:"words"`

	// Metadata carries optional segment-level metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Duration returns the segment duration in seconds.
func (s *Segment) Duration() float64 {
	return s.End - s.Start
}

// AverageConfidence returns the mean confidence of the segment words,
// or 0 for an empty segment.
func (s *Segment) AverageConfidence() float64 {
	if len(s.Words) == 0 {
		return 0
	}
	var sum float64
	for i := range s.Words {
		sum += s.Words[i].Confidence
	}
	return sum / float64(len(s.Words))
}

// AudioAnalysisData is a whole transcript: ordered segments plus global metadata.
// It is owned by the caller and borrowed read-only by the engine for the
// duration of one application.
type AudioAnalysisData struct {
	// ID is an optional stable transcript identifier. When set it is used as
	// the transcript fingerprint for variable caching.
	ID string `json:"id,omitempty"`

	// Language is the detected or declared language code.
	Language string `json:"language,omitempty"`

	// Duration is the media duration in seconds. Zero means "derive from words".
	Duration float64 `json:"duration,omitempty"`

	// Segments are the transcript segments in document order.
	Segments []Segment `json:"segments"`

	// Metadata carries global metadata produced by the analysis pipeline.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// WordCount returns the total number of words across all segments.
func (a *AudioAnalysisData) WordCount() int {
	n := 0
	for i := range a.Segments {
		n += len(a.Segments[i].Words)
	}
	return n
}

// WordID returns the identifier of the word at the given position.
// The word's own ID wins; otherwise a positional id "s<segment>w<index>" is used.
func (a *AudioAnalysisData) WordID(segmentIndex, wordIndex int) string {
	w := &a.Segments[segmentIndex].Words[wordIndex]
	if w.ID != "" {
		return w.ID
	}
	return fmt.Sprintf("s%dw%d", segmentIndex, wordIndex)
}
