package templates

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/stl/parser"
)

// Loader reads template documents from the file system.
type Loader struct {
	parser      *parser.Parser
	maxFileSize int64
	skipHidden  bool
}

// NewLoader creates a loader accepting documents up to maxFileSize bytes.
// Hidden files and directories are skipped.
func NewLoader(maxFileSize int64) *Loader {
	return &Loader{
		parser:      parser.NewParser().WithMaxFileSize(maxFileSize),
		maxFileSize: maxFileSize,
		skipHidden:  true,
	}
}

// LoadFile loads one template document. Its format follows the extension:
// .toml is TOML, anything else YAML (or JSON).
func (l *Loader) LoadFile(path string) (*ast.Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		msg := "failed to access file"
		switch {
		case os.IsNotExist(err):
			msg = "file not found"
		case os.IsPermission(err):
			msg = "permission denied"
		}
		return nil, &LoadError{FilePath: path, Message: msg, Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.maxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.maxFileSize),
		}
	}

	tpl, err := l.parser.ParseFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "parsing failed", Cause: err}
	}
	if tpl.ID == "" {
		return nil, &LoadError{FilePath: path, Message: "template has no id"}
	}
	return tpl, nil
}

// LoadDir loads every template document under dir, in lexical path order.
// Documents that fail to load are reported in an *ErrorList returned next
// to the templates that did load. Two documents declaring the same id are
// an error for the second one.
func (l *Loader) LoadDir(dir string) ([]*ast.Template, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to access directory", Cause: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{FilePath: dir, Message: "not a directory"}
	}

	paths, err := l.collect(dir)
	if err != nil {
		return nil, err
	}

	var (
		loaded []*ast.Template
		errs   ErrorList
	)
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		tpl, err := l.LoadFile(path)
		if err != nil {
			errs.Add(err)
			continue
		}
		if first, dup := seen[tpl.ID]; dup {
			errs.Add(&LoadError{
				FilePath: path,
				Message:  fmt.Sprintf("template id %q is already declared in %s", tpl.ID, first),
			})
			continue
		}
		seen[tpl.ID] = path
		loaded = append(loaded, tpl)
	}
	return loaded, errs.ErrorOrNil()
}

// collect returns the template documents under dir.
func (l *Loader) collect(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.skipHidden && path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !parser.IsTemplateFile(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	return paths, nil
}
