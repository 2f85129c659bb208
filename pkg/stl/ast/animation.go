package ast

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// AnimationSpec describes the animation a rule applies. The rendering layer
// maps PluginName onto its own effect plugins; Params and Timing are passed
// through untouched.
type AnimationSpec struct {
	PluginName    string         // Effect plugin identifier (e.g. "bounce", "shake")
	Params        map[string]any // Plugin-specific parameters
	Timing        Timing         // Timing relative to the word
	Intensity     *float64       // Declared intensity in [0, 1] (optional)
	IntensityExpr string         // Expression computing intensity per word (optional)
}

// Timing describes when an animation plays relative to its word.
// Durations use Go duration syntax ("200ms", "1.5s") or bare numbers in milliseconds.
type Timing struct {
	Offset   []string // [start, end] offsets relative to the word start
	Duration string   // Animation duration
	Delay    string   // Delay before starting
	Easing   string   // Easing curve name
	Stagger  string   // Per-character stagger
}

// IsZero returns true if no timing field is set.
func (t Timing) IsZero() bool {
	return len(t.Offset) == 0 && t.Duration == "" && t.Delay == "" && t.Easing == "" && t.Stagger == ""
}

// GetParameter returns the parameter value for the given key, or nil if not found.
func (a *AnimationSpec) GetParameter(key string) any {
	return a.Params[key]
}

// GetStringParameter returns the string value of a parameter.
// Returns empty string if parameter doesn't exist or is not a string.
func (a *AnimationSpec) GetStringParameter(key string) string {
	if s, ok := a.Params[key].(string); ok {
		return s
	}
	return ""
}

// GetNumberParameter returns the numeric value of a parameter.
// Returns 0 if parameter doesn't exist or is not a number.
func (a *AnimationSpec) GetNumberParameter(key string) float64 {
	switch n := a.Params[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// ParseTimingDuration parses a timing value. Go duration syntax ("200ms",
// "1.5s") is accepted, and bare numbers are milliseconds. Negative values
// are allowed; offsets may start before the word.
func ParseTimingDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use a number of milliseconds or a value like \"200ms\"", s)
	}
	return d, nil
}
