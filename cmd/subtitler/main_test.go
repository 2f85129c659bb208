package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/cli"
	"mercator-hq/subtitler/pkg/config"
)

const invalidTemplate = `id: broken
rules:
  - id: confident
    condition: "word.confidence >= variables.typical"
    animation:
      pluginName: bounce
`

// setupConfig points --config at a fresh file recording history into a
// temporary SQLite database and resets the process configuration.
func setupConfig(t *testing.T, historyEnabled bool) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	enabled := "false"
	if historyEnabled {
		enabled = "true"
	}
	doc := `templates:
  directory: testdata/templates
history:
  enabled: ` + enabled + `
  backend: sqlite
  sqlite:
    path: ` + dbPath + `
telemetry:
  logging:
    level: error
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config.SetConfig(nil)
	prevCfg, prevVerbose := cfgFile, verbose
	cfgFile, verbose = path, false
	t.Cleanup(func() {
		config.SetConfig(nil)
		cfgFile, verbose = prevCfg, prevVerbose
	})
	return dir
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd, out
}

func resetApplyFlags(t *testing.T) {
	t.Helper()
	prev := applyFlags
	t.Cleanup(func() { applyFlags = prev })
	applyFlags.template = ""
	applyFlags.templateID = ""
	applyFlags.transcripts = nil
	applyFlags.enable = nil
	applyFlags.disable = nil
	applyFlags.profile = false
	applyFlags.debug = false
	applyFlags.noCache = false
	applyFlags.format = "json"
	applyFlags.outDir = ""
}

func appliedPairs(t *testing.T, data []byte) []string {
	t.Helper()
	var result struct {
		Success      bool `json:"success"`
		AppliedRules []struct {
			RuleID string `json:"ruleId"`
			WordID string `json:"wordId"`
		} `json:"appliedRules"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("output is not a JSON result: %v\n%s", err, data)
	}
	if !result.Success {
		t.Errorf("result not successful: %s", data)
	}
	pairs := make([]string, len(result.AppliedRules))
	for i, a := range result.AppliedRules {
		pairs[i] = a.WordID + ":" + a.RuleID
	}
	return pairs
}

func TestApply_TemplateFile(t *testing.T) {
	setupConfig(t, false)
	resetApplyFlags(t)
	applyFlags.template = "testdata/templates/captions.yaml"
	applyFlags.transcripts = []string{"testdata/clip.json"}

	cmd, out := testCommand()
	if err := runApply(cmd, nil); err != nil {
		t.Fatalf("runApply() error = %v", err)
	}

	got := strings.Join(appliedPairs(t, out.Bytes()), " ")
	want := "s0w0:confident s0w1:loud s1w1:surprised s1w1:confident"
	if got != want {
		t.Errorf("applied = %s, want %s", got, want)
	}
}

func TestApply_TemplateIDAndRuleFilter(t *testing.T) {
	setupConfig(t, false)
	resetApplyFlags(t)
	applyFlags.templateID = "captions"
	applyFlags.transcripts = []string{"testdata/clip.json"}
	applyFlags.disable = []string{"confident"}

	cmd, out := testCommand()
	if err := runApply(cmd, nil); err != nil {
		t.Fatalf("runApply() error = %v", err)
	}

	got := strings.Join(appliedPairs(t, out.Bytes()), " ")
	if want := "s0w1:loud s1w1:surprised"; got != want {
		t.Errorf("applied = %s, want %s", got, want)
	}
}

func TestApply_OutDirAndHistory(t *testing.T) {
	dir := setupConfig(t, true)
	resetApplyFlags(t)
	applyFlags.template = "testdata/templates/captions.yaml"
	applyFlags.transcripts = []string{"testdata/clip.json"}
	applyFlags.outDir = filepath.Join(dir, "out")

	cmd, out := testCommand()
	if err := runApply(cmd, nil); err != nil {
		t.Fatalf("runApply() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("stdout should be empty with --out-dir, got %q", out.String())
	}

	data, err := os.ReadFile(filepath.Join(applyFlags.outDir, "clip.animations.json"))
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	if n := len(appliedPairs(t, data)); n != 4 {
		t.Errorf("applied rules in file = %d, want 4", n)
	}

	prevHistory := historyFlags
	t.Cleanup(func() { historyFlags = prevHistory })
	historyFlags.format = "json"
	historyFlags.limit = 10
	historyFlags.offset = 0
	historyFlags.since = time.Hour
	historyFlags.status = ""
	historyFlags.template = "captions"

	listCmd, listOut := testCommand()
	if err := runHistoryList(listCmd, nil); err != nil {
		t.Fatalf("runHistoryList() error = %v", err)
	}
	var records []struct {
		TemplateID        string `json:"templateId"`
		TranscriptID      string `json:"transcriptId"`
		Status            string `json:"status"`
		AnimationsApplied int    `json:"animationsApplied"`
	}
	if err := json.Unmarshal(listOut.Bytes(), &records); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, listOut.String())
	}
	if len(records) != 1 {
		t.Fatalf("history records = %d, want 1", len(records))
	}
	r := records[0]
	if r.TemplateID != "captions" || r.TranscriptID != "clip-7" || r.Status != "success" || r.AnimationsApplied != 4 {
		t.Errorf("record = %+v", r)
	}

	pruneCmd, pruneOut := testCommand()
	if err := runHistoryPrune(pruneCmd, nil); err != nil {
		t.Fatalf("runHistoryPrune() error = %v", err)
	}
	if !strings.Contains(pruneOut.String(), "Deleted 0 records") {
		t.Errorf("prune output = %q", pruneOut.String())
	}
}

func TestApply_Failures(t *testing.T) {
	dir := setupConfig(t, false)
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte(invalidTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		template string
		id       string
		files    []string
		wantExit bool
	}{
		{name: "invalid template", template: broken, files: []string{"testdata/clip.json"}, wantExit: true},
		{name: "missing transcript", template: "testdata/templates/captions.yaml", files: []string{"testdata/missing.json"}, wantExit: true},
		{name: "unknown template id", id: "nope", files: []string{"testdata/clip.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetApplyFlags(t)
			applyFlags.template = tt.template
			applyFlags.templateID = tt.id
			applyFlags.transcripts = tt.files

			cmd, _ := testCommand()
			err := runApply(cmd, nil)
			if err == nil {
				t.Fatal("runApply() error = nil, want error")
			}
			var exitErr *cli.ExitError
			if got := errors.As(err, &exitErr); got != tt.wantExit {
				t.Errorf("ExitError = %v, want %v (err = %v)", got, tt.wantExit, err)
			}
			if tt.wantExit && exitErr.Code != 2 {
				t.Errorf("exit code = %d, want 2", exitErr.Code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	dir := setupConfig(t, false)
	broken := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(broken, []byte(invalidTemplate), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		files    []string
		dir      string
		wantErr  bool
		contains []string
	}{
		{name: "valid file", files: []string{"testdata/templates/captions.yaml"}, contains: []string{"captions", "yes"}},
		{name: "templates dir", dir: "testdata/templates", contains: []string{"captions"}},
		{name: "invalid file", files: []string{broken}, wantErr: true, contains: []string{"broken", "typical"}},
		{name: "missing file", files: []string{filepath.Join(dir, "missing.yaml")}, wantErr: true, contains: []string{"missing.yaml"}},
		{name: "nothing to validate", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := validateFlags
			t.Cleanup(func() { validateFlags = prev })
			validateFlags.files = tt.files
			validateFlags.dir = tt.dir
			validateFlags.strict = false
			validateFlags.format = "text"

			cmd, out := testCommand()
			err := runValidate(cmd, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out.String())
				}
			}
		})
	}
}

func TestValidate_JSON(t *testing.T) {
	setupConfig(t, false)
	prev := validateFlags
	t.Cleanup(func() { validateFlags = prev })
	validateFlags.files = []string{"testdata/templates/captions.yaml"}
	validateFlags.dir = ""
	validateFlags.format = "json"

	cmd, out := testCommand()
	if err := runValidate(cmd, nil); err != nil {
		t.Fatalf("runValidate() error = %v", err)
	}

	var reports []struct {
		TemplateID string `json:"templateId"`
		Valid      bool   `json:"valid"`
		RuleCount  int    `json:"ruleCount"`
	}
	if err := json.Unmarshal(out.Bytes(), &reports); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(reports) != 1 || !reports[0].Valid || reports[0].RuleCount != 3 {
		t.Errorf("reports = %+v", reports)
	}
}

func TestTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.toml", "notes.txt", ".hidden/c.yaml", "nested/d.json"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("id: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := templateFiles(dir)
	if err != nil {
		t.Fatalf("templateFiles() error = %v", err)
	}
	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f)
		names = append(names, filepath.ToSlash(rel))
	}
	if got, want := strings.Join(names, " "), "a.yaml b.toml nested/d.json"; got != want {
		t.Errorf("templateFiles() = %s, want %s", got, want)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(cli.NewExitError(2, "invalid")); got != 2 {
		t.Errorf("exitCode(ExitError) = %d, want 2", got)
	}
	if got := exitCode(errors.New("boom")); got != 1 {
		t.Errorf("exitCode(error) = %d, want 1", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"apply": false, "validate": false, "watch": false, "history": false, "version": false, "completion": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	cmd, out := testCommand()
	versionCmd.Run(cmd, nil)
	for _, want := range []string{"Subtitler " + Version, "Git Commit:", "Go Version:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, out.String())
		}
	}
}
