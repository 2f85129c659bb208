package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// Format is a template document format.
type Format string

const (
	FormatYAML Format = "yaml" // YAML, also accepts JSON
	FormatTOML Format = "toml"
)

// FormatFromPath selects the document format from a file extension.
// Anything other than .toml is read as YAML, which is a superset of JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// IsTemplateFile reports whether a path has a template document extension.
func IsTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		return true
	}
	return false
}

// Parser parses template documents into Abstract Syntax Trees.
// It handles document decoding and AST construction; expressions inside the
// template are parsed later, by the compiler.
type Parser struct {
	maxFileSize int64 // Maximum file size in bytes (default: 10MB)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
	}
}

// WithMaxFileSize sets the maximum file size limit.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// ParseFile parses a template document at the given path.
// It returns an error if the file cannot be read, has invalid syntax,
// or contains values of the wrong type.
func (p *Parser) ParseFile(path string) (*ast.Template, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to access file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	if fileInfo.Size() > p.maxFileSize {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("File size %d exceeds maximum %d bytes", fileInfo.Size(), p.maxFileSize),
			Location: ast.Location{File: path},
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Failed to read file: %v", err),
			Location: ast.Location{File: path},
		}
	}

	tpl, err := p.parse(data, path, FormatFromPath(path))
	if err != nil {
		// Add context to errors
		switch e := err.(type) {
		case *stlErrors.ErrorList:
			for i, item := range e.Errors {
				e.Errors[i] = stlErrors.AddContextToError(item)
			}
		case *stlErrors.Error:
			stlErrors.AddContextToError(e)
		}
		return nil, err
	}

	return tpl, nil
}

// ParseBytes parses a template document from a byte slice. The format is
// chosen from sourcePath's extension. This is useful for testing or for
// templates held in memory.
func (p *Parser) ParseBytes(data []byte, sourcePath string) (*ast.Template, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	return p.parse(data, sourcePath, FormatFromPath(sourcePath))
}

// ParseBytesAs parses a template document in an explicit format.
func (p *Parser) ParseBytesAs(data []byte, sourcePath string, format Format) (*ast.Template, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, &stlErrors.Error{
			Type:     stlErrors.ErrorTypeIO,
			Message:  fmt.Sprintf("Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize),
			Location: ast.Location{File: sourcePath},
		}
	}

	return p.parse(data, sourcePath, format)
}

func (p *Parser) parse(data []byte, sourcePath string, format Format) (*ast.Template, error) {
	var (
		doc *templateDoc
		err error
	)

	switch format {
	case FormatTOML:
		doc, err = parseTOMLBytes(data)
		if err != nil {
			line, column := tomlErrorPosition(err)
			return nil, &stlErrors.Error{
				Type:       stlErrors.ErrorTypeSyntax,
				Message:    fmt.Sprintf("TOML parsing failed: %v", err),
				Location:   ast.Location{File: sourcePath, Line: line, Column: column},
				Suggestion: "Declare variables and rules as arrays of tables ([[variables]], [[rules]])",
			}
		}
	default:
		doc, err = parseYAMLBytes(data)
		if err != nil {
			return nil, &stlErrors.Error{
				Type:       stlErrors.ErrorTypeSyntax,
				Message:    fmt.Sprintf("YAML parsing failed: %v", err),
				Location:   ast.Location{File: sourcePath, Line: yamlErrorLine(err), Column: 1},
				Suggestion: "Check YAML syntax (indentation, colons, quotes)",
			}
		}
	}

	return newBuilder(sourcePath).buildTemplate(doc)
}

// ParseFile parses a template document with a default parser.
func ParseFile(path string) (*ast.Template, error) {
	return NewParser().ParseFile(path)
}

// ParseBytes parses an in-memory template document with a default parser.
func ParseBytes(data []byte, sourcePath string) (*ast.Template, error) {
	return NewParser().ParseBytes(data, sourcePath)
}
