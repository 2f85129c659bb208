package ast

import "fmt"

// Location represents where an AST node came from: the template document,
// the line/column when known, and the logical path inside the template
// (e.g. "rules[2].condition"). Column is also used for positions inside an
// expression string.
type Location struct {
	File   string // Path to the template document (empty for in-memory templates)
	Line   int    // Line number (1-based, 0 if unknown)
	Column int    // Column number (1-based, 0 if unknown)
	Path   string // Logical path within the template
}

// String returns a human-readable representation of the location.
// Format: "file:line:column (path)" with unknown parts omitted.
func (l Location) String() string {
	var pos string
	switch {
	case l.File != "" && l.Line > 0:
		pos = fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	case l.File != "":
		pos = l.File
	}

	switch {
	case pos != "" && l.Path != "":
		return pos + " (" + l.Path + ")"
	case pos != "":
		return pos
	case l.Path != "" && l.Column > 0:
		return fmt.Sprintf("%s:%d", l.Path, l.Column)
	case l.Path != "":
		return l.Path
	default:
		return "<unknown>"
	}
}

// IsValid returns true if the location identifies anything at all.
func (l Location) IsValid() bool {
	return l.File != "" || l.Path != ""
}

// At returns a copy of the location pointing at a column inside an expression.
func (l Location) At(column int) Location {
	l.Column = column
	return l
}

// Child returns a copy of the location with a nested logical path.
func (l Location) Child(path string) Location {
	if l.Path == "" {
		l.Path = path
	} else {
		l.Path = l.Path + "." + path
	}
	l.Column = 0
	return l
}
