package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrMalformed indicates the transcript shape is not usable by the engine.
var ErrMalformed = errors.New("malformed transcript")

// ShapeError describes a single structural problem in a transcript.
type ShapeError struct {
	SegmentIndex int
	WordIndex    int // -1 for segment-level problems
	Message      string
}

// Error returns the error message.
func (e *ShapeError) Error() string {
	if e.WordIndex < 0 {
		return fmt.Sprintf("segment %d: %s", e.SegmentIndex, e.Message)
	}
	return fmt.Sprintf("segment %d word %d: %s", e.SegmentIndex, e.WordIndex, e.Message)
}

// Unwrap allows errors.Is(err, ErrMalformed).
func (e *ShapeError) Unwrap() error {
	return ErrMalformed
}

// Load reads a JSON transcript from disk.
func Load(path string) (*AudioAnalysisData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %q: %w", path, err)
	}
	defer f.Close()

	data, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transcript %q: %w", path, err)
	}
	return data, nil
}

// Decode reads a JSON transcript from r.
func Decode(r io.Reader) (*AudioAnalysisData, error) {
	var data AudioAnalysisData
	dec := json.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Validate checks the transcript for shape problems that would make
// evaluation meaningless: non-finite numbers, inverted timings, and
// confidences outside [0, 1]. The first problem found is returned.
func (a *AudioAnalysisData) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: transcript is nil", ErrMalformed)
	}

	for si := range a.Segments {
		seg := &a.Segments[si]
		if !finite(seg.Start) || !finite(seg.End) {
			return &ShapeError{SegmentIndex: si, WordIndex: -1, Message: "non-finite segment timing"}
		}
		for wi := range seg.Words {
			w := &seg.Words[wi]
			switch {
			case !finite(w.Start) || !finite(w.End):
				return &ShapeError{SegmentIndex: si, WordIndex: wi, Message: "non-finite word timing"}
			case w.End < w.Start:
				return &ShapeError{SegmentIndex: si, WordIndex: wi,
					Message: fmt.Sprintf("end %.3f before start %.3f", w.End, w.Start)}
			case !finite(w.Confidence) || w.Confidence < 0 || w.Confidence > 1:
				return &ShapeError{SegmentIndex: si, WordIndex: wi,
					Message: fmt.Sprintf("confidence %v outside [0, 1]", w.Confidence)}
			}
		}
	}

	return nil
}

// Summary holds transcript-wide aggregates computed once per application.
type Summary struct {
	WordCount         int
	SegmentCount      int
	Duration          float64
	AverageConfidence float64
	Confidences       []float64
}

// Summarize computes transcript aggregates in a single pass.
func (a *AudioAnalysisData) Summarize() *Summary {
	s := &Summary{
		SegmentCount: len(a.Segments),
		Duration:     a.Duration,
		Confidences:  make([]float64, 0, a.WordCount()),
	}

	var sum, lastEnd float64
	for si := range a.Segments {
		for wi := range a.Segments[si].Words {
			w := &a.Segments[si].Words[wi]
			s.Confidences = append(s.Confidences, w.Confidence)
			sum += w.Confidence
			if w.End > lastEnd {
				lastEnd = w.End
			}
		}
		if a.Segments[si].End > lastEnd {
			lastEnd = a.Segments[si].End
		}
	}

	s.WordCount = len(s.Confidences)
	if s.WordCount > 0 {
		s.AverageConfidence = sum / float64(s.WordCount)
	}
	if s.Duration == 0 {
		s.Duration = lastEnd
	}
	return s
}

// Fingerprint returns a stable identity for the transcript used in cache keys.
// The transcript ID is used when present, so two transcripts sharing an ID
// are treated as the same content. Otherwise the metadata, language and
// every segment and word timing, text and confidence are hashed.
func (a *AudioAnalysisData) Fingerprint() string {
	if a.ID != "" {
		return "id:" + a.ID
	}

	h := sha256.New()
	// encoding/json writes map keys in sorted order, so this is canonical.
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		meta = []byte(fmt.Sprintf("%v", a.Metadata))
	}
	h.Write(meta)
	fmt.Fprintf(h, "|%s|%g|%d", a.Language, a.Duration, len(a.Segments))
	for si := range a.Segments {
		seg := &a.Segments[si]
		fmt.Fprintf(h, "|s%g,%g,%q,%q,%d", seg.Start, seg.End, seg.Speaker, seg.Emotion, len(seg.Words))
		for wi := range seg.Words {
			w := &seg.Words[wi]
			fmt.Fprintf(h, "|w%q,%g,%g,%g,%q,%q", w.Text, w.Start, w.End, w.Confidence, w.Emotion, w.Speaker)
		}
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
