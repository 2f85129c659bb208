package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const captionYAML = `id: captions
version: "1"
rules:
  - id: confident
    condition: "word.confidence >= 0.8"
    animation:
      pluginName: bounce
`

const captionJSON = `{
  "id": "json-captions",
  "rules": [
    {"id": "all", "condition": "true", "animation": {"pluginName": "glow"}}
  ]
}`

const captionTOML = `id = "toml-captions"

[[rules]]
id = "all"
condition = "true"

[rules.animation]
pluginName = "glow"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		file   string
		body   string
		wantID string
	}{
		{name: "yaml", file: "a.yaml", body: captionYAML, wantID: "captions"},
		{name: "json", file: "b.json", body: captionJSON, wantID: "json-captions"},
		{name: "toml", file: "c.toml", body: captionTOML, wantID: "toml-captions"},
	}

	loader := NewLoader(1 << 20)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.body)
			tpl, err := loader.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if tpl.ID != tt.wantID || tpl.SourceFile != path {
				t.Errorf("template = %s from %s", tpl.ID, tpl.SourceFile)
			}
		})
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		maxSize int64
		wantMsg string
	}{
		{name: "missing", path: filepath.Join(dir, "nope.yaml"), maxSize: 1 << 20, wantMsg: "file not found"},
		{name: "directory", path: dir, maxSize: 1 << 20, wantMsg: "not a regular file"},
		{name: "too large", path: writeFile(t, dir, "big.yaml", captionYAML), maxSize: 10, wantMsg: "exceeds maximum"},
		{name: "syntax", path: writeFile(t, dir, "bad.yaml", "id: [unclosed"), maxSize: 1 << 20, wantMsg: "parsing failed"},
		{name: "no id", path: writeFile(t, dir, "anon.yaml", "rules: []\n"), maxSize: 1 << 20, wantMsg: "no id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(tt.maxSize).LoadFile(tt.path)
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("error = %v, want *LoadError", err)
			}
			if !strings.Contains(le.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want %q", le.Message, tt.wantMsg)
			}
		})
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", captionYAML)
	writeFile(t, dir, "nested/b.json", captionJSON)
	writeFile(t, dir, "nested/c.toml", captionTOML)
	writeFile(t, dir, "broken.yml", "id: [")
	writeFile(t, dir, "dup.yaml", captionYAML)
	writeFile(t, dir, ".hidden.yaml", captionYAML)
	writeFile(t, dir, ".git/config.yaml", captionYAML)
	writeFile(t, dir, "README.md", "# templates")

	tpls, err := NewLoader(1 << 20).LoadDir(dir)

	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %v, want *ErrorList", err)
	}
	if len(list.Errors) != 2 {
		t.Errorf("errors = %v, want broken.yml and dup.yaml", list.Errors)
	}

	var ids []string
	for _, tpl := range tpls {
		ids = append(ids, tpl.ID)
	}
	want := []string{"captions", "json-captions", "toml-captions"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestLoader_LoadDir_NotADirectory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.yaml", captionYAML)
	if _, err := NewLoader(1 << 20).LoadDir(path); err == nil {
		t.Fatal("LoadDir() on a file should fail")
	}
}
