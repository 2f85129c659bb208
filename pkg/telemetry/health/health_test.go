package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "default timeout", timeout: 0, want: DefaultCheckTimeout},
		{name: "negative timeout", timeout: -time.Second, want: DefaultCheckTimeout},
		{name: "custom timeout", timeout: 10 * time.Second, want: 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.timeout).timeout; got != tt.want {
				t.Errorf("timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChecker_RegisterUnregister(t *testing.T) {
	checker := New(time.Second)
	checker.Register("templates", func(context.Context) error { return nil })
	checker.Register("history", func(context.Context) error { return nil })

	if got := checker.Names(); !slices.Equal(got, []string{"history", "templates"}) {
		t.Errorf("Names() = %v", got)
	}

	checker.Unregister("history")
	if got := checker.Names(); !slices.Equal(got, []string{"templates"}) {
		t.Errorf("Names() after Unregister = %v", got)
	}
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"templates": func(context.Context) error { return nil },
				"history":   func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"templates": func(context.Context) error { return errors.New("no templates loaded") },
				"history":   func(context.Context) error { return nil },
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"templates"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: StatusDegraded,
			wantFailed: []string{"slow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				checker.Register(name, check)
			}

			status := checker.Readiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d check results, want %d", len(status.Checks), len(tt.checks))
			}

			var failed []string
			for name, result := range status.Checks {
				if result.Status != StatusOK {
					failed = append(failed, name)
					if result.Message == "" {
						t.Errorf("check %q failed without a message", name)
					}
				}
			}
			slices.Sort(failed)
			if !slices.Equal(failed, tt.wantFailed) {
				t.Errorf("failed checks = %v, want %v", failed, tt.wantFailed)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	healthy := true
	checker.Register("templates", func(context.Context) error {
		if !healthy {
			return errors.New("no templates loaded")
		}
		return nil
	})

	mux := http.NewServeMux()
	Mount(mux, checker, NewVersionInfo("1.2.0", "abc123", "2026-03-14"))

	tests := []struct {
		name     string
		method   string
		path     string
		healthy  bool
		wantCode int
		wantBody bool
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", healthy: false, wantCode: http.StatusOK, wantBody: true},
		{name: "ready", method: http.MethodGet, path: "/readyz", healthy: true, wantCode: http.StatusOK, wantBody: true},
		{name: "not ready", method: http.MethodGet, path: "/readyz", healthy: false, wantCode: http.StatusServiceUnavailable, wantBody: true},
		{name: "head has no body", method: http.MethodHead, path: "/readyz", healthy: true, wantCode: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/version", healthy: true, wantCode: http.StatusOK, wantBody: true},
		{name: "post rejected", method: http.MethodPost, path: "/healthz", healthy: true, wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			healthy = tt.healthy
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("body is not JSON: %v", err)
				}
			} else if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Errorf("HEAD body = %q, want empty", rec.Body.String())
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler(NewVersionInfo("1.2.0", "abc123", "2026-03-14")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("VersionInfo = %+v", info)
	}
}
