package eval

import (
	"fmt"
	"unicode/utf8"

	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/transcript"
)

// Transcript is the per-run view of a transcript shared by every word
// context: the data itself plus aggregates computed once.
type Transcript struct {
	Data        *transcript.AudioAnalysisData
	Summary     *transcript.Summary
	Fingerprint string

	confidences Value
}

// NewTranscript computes the run-wide aggregates of a transcript.
func NewTranscript(data *transcript.AudioAnalysisData) *Transcript {
	summary := data.Summarize()
	return &Transcript{
		Data:        data,
		Summary:     summary,
		Fingerprint: data.Fingerprint(),
		confidences: Numbers(summary.Confidences),
	}
}

// Position locates a word within the transcript.
type Position struct {
	WordIndex        int // Global index in document order
	SegmentIndex     int
	WordInSegment    int
	TotalWords       int
	TotalSegments    int
	SegmentWordCount int
}

// Context is the read-only data an expression is evaluated against. Rule
// contexts are built per word; the variable context has no word, segment or
// position.
type Context struct {
	Transcript *Transcript
	Variables  map[string]Value

	Word     *transcript.Word
	Segment  *transcript.Segment
	Prev     *transcript.Word
	Next     *transcript.Word
	Position Position
}

// WordContext builds the context of word w in segment s. wordIndex is the
// word's global index in document order. Neighbouring words are looked up
// across segment boundaries.
func (t *Transcript) WordContext(s, w, wordIndex int, variables map[string]Value) *Context {
	segments := t.Data.Segments
	seg := &segments[s]

	ctx := &Context{
		Transcript: t,
		Variables:  variables,
		Word:       &seg.Words[w],
		Segment:    seg,
		Position: Position{
			WordIndex:        wordIndex,
			SegmentIndex:     s,
			WordInSegment:    w,
			TotalWords:       t.Summary.WordCount,
			TotalSegments:    t.Summary.SegmentCount,
			SegmentWordCount: len(seg.Words),
		},
	}

	if w > 0 {
		ctx.Prev = &seg.Words[w-1]
	} else {
		for ps := s - 1; ps >= 0; ps-- {
			if n := len(segments[ps].Words); n > 0 {
				ctx.Prev = &segments[ps].Words[n-1]
				break
			}
		}
	}

	if w+1 < len(seg.Words) {
		ctx.Next = &seg.Words[w+1]
	} else {
		for ns := s + 1; ns < len(segments); ns++ {
			if len(segments[ns].Words) > 0 {
				ctx.Next = &segments[ns].Words[0]
				break
			}
		}
	}

	return ctx
}

// NewVariableContext returns the context variables are computed in.
func NewVariableContext(t *Transcript, variables map[string]Value) *Context {
	return &Context{Transcript: t, Variables: variables}
}

// Resolve looks up a reference. Optional data (features, metadata keys,
// neighbouring words) resolves to null when absent; unknown roots and fields
// are errors.
func (c *Context) Resolve(ref *ast.Ref) (Value, error) {
	switch ref.Root {
	case "word":
		if c.Word == nil {
			return Null(), fmt.Errorf("%w: word is not available here", ErrUnknownReference)
		}
		return resolveWord(c.Word, ref)
	case "prev", "next":
		w := c.Prev
		if ref.Root == "next" {
			w = c.Next
		}
		if c.Word == nil {
			return Null(), fmt.Errorf("%w: %s is not available here", ErrUnknownReference, ref.Root)
		}
		if w == nil {
			return Null(), nil
		}
		if len(ref.Path) == 0 {
			return Bool(true), nil
		}
		return resolveWord(w, ref)
	case "segment":
		if c.Segment == nil {
			return Null(), fmt.Errorf("%w: segment is not available here", ErrUnknownReference)
		}
		return c.resolveSegment(ref)
	case "audioData":
		if c.Transcript == nil {
			return Null(), fmt.Errorf("%w: audioData is not available here", ErrUnknownReference)
		}
		return c.resolveAudio(ref)
	case "position":
		if c.Word == nil {
			return Null(), fmt.Errorf("%w: position is not available here", ErrUnknownReference)
		}
		return c.resolvePosition(ref)
	case "variables":
		if len(ref.Path) != 1 {
			return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
		}
		v, ok := c.Variables[ref.Path[0]]
		if !ok {
			return Null(), fmt.Errorf("%w: variable %q is not defined", ErrUnknownReference, ref.Path[0])
		}
		return v, nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
}

func field(ref *ast.Ref) (string, error) {
	if len(ref.Path) == 0 {
		return "", fmt.Errorf("%w: %s needs a field", ErrUnknownReference, ref.Root)
	}
	if len(ref.Path) > 1 {
		return "", fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
	}
	return ref.Path[0], nil
}

func resolveWord(w *transcript.Word, ref *ast.Ref) (Value, error) {
	if len(ref.Path) > 0 && ref.Path[0] == "features" {
		return lookupMap(w.Features, ref)
	}

	name, err := field(ref)
	if err != nil {
		return Null(), err
	}

	switch name {
	case "id":
		return String(w.ID), nil
	case "text":
		return String(w.Text), nil
	case "start":
		return Number(w.Start), nil
	case "end":
		return Number(w.End), nil
	case "duration":
		return Number(w.Duration()), nil
	case "confidence":
		return Number(w.Confidence), nil
	case "emotion":
		return optionalString(w.Emotion), nil
	case "speaker":
		return optionalString(w.Speaker), nil
	case "length":
		return Number(float64(utf8.RuneCountInString(w.Text))), nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
}

func (c *Context) resolveSegment(ref *ast.Ref) (Value, error) {
	s := c.Segment
	if len(ref.Path) > 0 && ref.Path[0] == "metadata" {
		return lookupMap(s.Metadata, ref)
	}

	name, err := field(ref)
	if err != nil {
		return Null(), err
	}

	switch name {
	case "id":
		return String(s.ID), nil
	case "index":
		return Number(float64(c.Position.SegmentIndex)), nil
	case "text":
		return String(s.Text), nil
	case "start":
		return Number(s.Start), nil
	case "end":
		return Number(s.End), nil
	case "duration":
		return Number(s.Duration()), nil
	case "speaker":
		return optionalString(s.Speaker), nil
	case "emotion":
		return optionalString(s.Emotion), nil
	case "wordCount":
		return Number(float64(len(s.Words))), nil
	case "averageConfidence":
		return Number(s.AverageConfidence()), nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
}

func (c *Context) resolveAudio(ref *ast.Ref) (Value, error) {
	t := c.Transcript
	if len(ref.Path) > 0 && ref.Path[0] == "metadata" {
		return lookupMap(t.Data.Metadata, ref)
	}

	name, err := field(ref)
	if err != nil {
		return Null(), err
	}

	switch name {
	case "id":
		return String(t.Data.ID), nil
	case "language":
		return optionalString(t.Data.Language), nil
	case "duration":
		return Number(t.Summary.Duration), nil
	case "wordCount":
		return Number(float64(t.Summary.WordCount)), nil
	case "segmentCount":
		return Number(float64(t.Summary.SegmentCount)), nil
	case "averageConfidence":
		return Number(t.Summary.AverageConfidence), nil
	case "confidences":
		return t.confidences, nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
}

func (c *Context) resolvePosition(ref *ast.Ref) (Value, error) {
	p := c.Position
	name, err := field(ref)
	if err != nil {
		return Null(), err
	}

	switch name {
	case "wordIndex":
		return Number(float64(p.WordIndex)), nil
	case "segmentIndex":
		return Number(float64(p.SegmentIndex)), nil
	case "wordInSegment":
		return Number(float64(p.WordInSegment)), nil
	case "totalWords":
		return Number(float64(p.TotalWords)), nil
	case "totalSegments":
		return Number(float64(p.TotalSegments)), nil
	case "segmentWordCount":
		return Number(float64(p.SegmentWordCount)), nil
	case "isFirst":
		return Bool(p.WordIndex == 0), nil
	case "isLast":
		return Bool(p.WordIndex == p.TotalWords-1), nil
	case "isFirstInSegment":
		return Bool(p.WordInSegment == 0), nil
	case "isLastInSegment":
		return Bool(p.WordInSegment == p.SegmentWordCount-1), nil
	case "progress":
		if p.TotalWords <= 1 {
			return Number(0), nil
		}
		return Number(float64(p.WordIndex) / float64(p.TotalWords-1)), nil
	}
	return Null(), fmt.Errorf("%w: %s", ErrUnknownReference, ref.Dotted())
}

// lookupMap walks ref.Path[1:] through nested maps. Missing keys are null.
func lookupMap(m map[string]any, ref *ast.Ref) (Value, error) {
	if len(ref.Path) < 2 {
		return Null(), fmt.Errorf("%w: %s needs a key", ErrUnknownReference, ref.Dotted())
	}

	var cur any = m
	for _, key := range ref.Path[1:] {
		node, ok := cur.(map[string]any)
		if !ok {
			return Null(), nil
		}
		cur, ok = node[key]
		if !ok {
			return Null(), nil
		}
	}

	v, ok := FromAny(cur)
	if !ok {
		return Null(), mismatch("%s holds unsupported %T", ref.Dotted(), cur)
	}
	return v, nil
}

// optionalString maps an empty optional label to null.
func optionalString(s string) Value {
	if s == "" {
		return Null()
	}
	return String(s)
}
