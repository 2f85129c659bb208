package templates

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/subtitler/pkg/telemetry/logging"
)

func TestWatcher_Relevant(t *testing.T) {
	w := &Watcher{}
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "t/a.yaml", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "t/a.toml", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "t/a.yaml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "t/.a.yaml.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "t/notes.md", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "t/nested", Op: fsnotify.Remove}, true},
	}
	for _, tt := range tests {
		if got := w.relevant(tt.event); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.stop()

	var calls atomic.Int32
	done := make(chan struct{}, 1)
	for range 5 {
		d.trigger(func() {
			calls.Add(1)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced callback never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "captions.yaml", captionYAML)

	inv := &recordingInvalidator{}
	m := NewManager(NewDirSource(dir, nil), WithInvalidator(inv), WithLogger(logging.Discard()))
	if _, err := m.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	inv.take()

	w, err := NewWatcher(dir, 20*time.Millisecond, logging.Discard())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *ReloadSummary, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Watch(ctx, w, func(s *ReloadSummary) { reloads <- s })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	updated := `id: captions
rules:
  - id: confident
    condition: "word.confidence >= 0.9"
    animation:
      pluginName: bounce
`
	if err := os.WriteFile(filepath.Join(dir, "captions.yaml"), []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-reloads:
		if !slices.Equal(s.Changed, []string{"captions"}) {
			t.Errorf("Changed = %v", s.Changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after editing a template")
	}
	if got := inv.take(); !slices.Contains(got, "captions") {
		t.Errorf("invalidated = %v", got)
	}
	if tpl, _ := m.Get("captions"); tpl.Rules[0].Condition != "word.confidence >= 0.9" {
		t.Errorf("condition = %q", tpl.Rules[0].Condition)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatcher_AlreadyRunning(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), 0, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx, func() error { return nil })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := w.Watch(ctx, func() error { return nil }); err != ErrWatcherRunning {
		t.Errorf("second Watch() error = %v, want ErrWatcherRunning", err)
	}
}
