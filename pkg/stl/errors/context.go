package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"mercator-hq/subtitler/pkg/stl/ast"
)

// ExtractContext reads the template document and extracts the lines around
// the given location. It returns an empty string for in-memory templates or
// when the file cannot be read.
func ExtractContext(location ast.Location, contextLines int) string {
	if location.File == "" || location.Line <= 0 {
		return ""
	}

	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ""
	}

	errorLine := location.Line - 1
	if errorLine >= len(lines) {
		return ""
	}
	startLine := max(errorLine-contextLines, 0)
	endLine := min(errorLine+contextLines, len(lines)-1)

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))

		if i == errorLine && location.Column > 0 {
			padding := strings.Repeat(" ", location.Column-1)
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", width), padding))
		}
	}

	return sb.String()
}

// AddContextToError enriches an error with two lines of surrounding source.
func AddContextToError(err *Error) *Error {
	err.Context = ExtractContext(err.Location, 2)
	return err
}
