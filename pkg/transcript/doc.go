// Package transcript defines the timed transcript consumed by the animation
// engine: words with timing and confidence, grouped into segments, plus
// transcript-wide metadata.
//
// Transcripts are produced by an external transcription pipeline and are
// treated as read-only input. The package provides JSON loading, a shape
// check used to reject malformed input before evaluation, transcript-wide
// aggregates, and a fingerprint used to key cached template variables.
//
//	data, err := transcript.Load("episode-12.json")
//	if err != nil {
//	    return err
//	}
//	if err := data.Validate(); err != nil {
//	    return err
//	}
//	summary := data.Summarize()
package transcript
