// Subtitler selects subtitle animations for transcribed speech.
//
// Templates declare rules over word features (confidence, loudness,
// emotion...); the selector evaluates them for every word of a transcript
// and reports which animation each word gets.
//
// Usage:
//
//	# Apply a template to a transcript
//	subtitler apply --template captions.yaml --transcript clip.json
//
//	# Validate every template of a directory
//	subtitler validate --dir templates/
//
//	# Re-apply on every template change and serve /metrics
//	subtitler watch --dir templates/ --transcript clip.json
//
//	# Show recorded applications
//	subtitler history list --template captions
package main

func main() {
	Execute()
}
