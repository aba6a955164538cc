package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tanq16/fetchd/internal/jobs"
	"github.com/tanq16/fetchd/internal/parser"
)

// mockController implements Controller for testing.
type mockController struct {
	jobs      map[string]parser.Snapshot
	states    map[string]jobs.State
	paused    []string
	removed   []string
	resumeErr error
	fileErr   error
	diskErr   error
}

func newMockController() *mockController {
	return &mockController{jobs: map[string]parser.Snapshot{}, states: map[string]jobs.State{}}
}

func (m *mockController) AddJob(_ context.Context, rawURL, subdir string) (string, error) {
	if !strings.HasPrefix(rawURL, "http") {
		return "", fmt.Errorf("%w: %s", jobs.ErrInvalidURL, rawURL)
	}
	id := "id-" + strings.NewReplacer("http://", "", "/", "-").Replace(rawURL)
	if m.states[id] == jobs.StateRunning {
		return id, jobs.ErrAlreadyRunning
	}
	snap := parser.Empty()
	snap.URL = rawURL
	m.jobs[id] = snap
	m.states[id] = jobs.StateRunning
	return id, nil
}

func (m *mockController) PauseJob(id string) bool {
	if m.states[id] != jobs.StateRunning {
		return false
	}
	m.paused = append(m.paused, id)
	m.states[id] = jobs.StatePaused
	return true
}

func (m *mockController) ResumeJob(_ context.Context, id string) (bool, error) {
	if m.resumeErr != nil {
		return false, m.resumeErr
	}
	return m.states[id] == jobs.StatePaused, nil
}

func (m *mockController) RemoveJob(id string) bool {
	m.removed = append(m.removed, id)
	delete(m.jobs, id)
	return true
}

func (m *mockController) RemoveDownloadedFile(id string) (bool, error) {
	if m.fileErr != nil {
		return false, m.fileErr
	}
	return true, nil
}

func (m *mockController) Summaries() ([]jobs.Summary, error) {
	var out []jobs.Summary
	for id, snap := range m.jobs {
		out = append(out, jobs.Summary{ID: id, State: m.states[id], Snapshot: snap})
	}
	return out, nil
}

func (m *mockController) Details(id string) (parser.Snapshot, error) {
	snap, ok := m.jobs[id]
	if !ok {
		return parser.Empty(), jobs.ErrJobNotFound
	}
	return snap, nil
}

func (m *mockController) State(id string) jobs.State {
	return m.states[id]
}

func (m *mockController) DiskUsage() (jobs.DiskUsage, error) {
	if m.diskErr != nil {
		return jobs.DiskUsage{}, m.diskErr
	}
	return jobs.DiskUsage{Total: 1000, Free: 250, Used: 750, Percent: "75.00"}, nil
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return out
}

func TestServer_Healthz(t *testing.T) {
	rec := do(t, NewServer(newMockController(), ":0"), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_AddJob(t *testing.T) {
	ctl := newMockController()
	srv := NewServer(ctl, ":0")

	rec := do(t, srv, http.MethodPost, "/v1/jobs", `{"url":"http://example.test/a.zip"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	resp := decode(t, rec)
	if resp["id"] != "id-example.test-a.zip" {
		t.Errorf("id = %v", resp["id"])
	}
	if resp["state"] != "running" {
		t.Errorf("state = %v", resp["state"])
	}
	if _, ok := resp["snapshot"]; ok {
		t.Errorf("add response should not carry a snapshot")
	}
}

func TestServer_AddJobErrors(t *testing.T) {
	srv := NewServer(newMockController(), ":0")
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"url":`, http.StatusBadRequest},
		{"invalid url", `{"url":"ftp-less"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/jobs", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if resp := decode(t, rec); resp["error"] == "" || resp["error"] == nil {
				t.Errorf("missing error body")
			}
		})
	}
}

func TestServer_GetJob(t *testing.T) {
	ctl := newMockController()
	srv := NewServer(ctl, ":0")
	id, _ := ctl.AddJob(context.Background(), "http://example.test/a.zip", "")

	rec := do(t, srv, http.MethodGet, "/v1/jobs/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode(t, rec)
	snap, ok := resp["snapshot"].(map[string]any)
	if !ok {
		t.Fatalf("snapshot missing: %v", resp)
	}
	if snap["url"] != "http://example.test/a.zip" || snap["eta"] != "n/a" || snap["done"] != false {
		t.Errorf("snapshot = %v", snap)
	}

	rec = do(t, srv, http.MethodGet, "/v1/jobs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", rec.Code)
	}
}

func TestServer_ListJobs(t *testing.T) {
	ctl := newMockController()
	ctl.AddJob(context.Background(), "http://a.test", "")
	ctl.AddJob(context.Background(), "http://b.test", "")
	rec := do(t, NewServer(ctl, ":0"), http.MethodGet, "/v1/jobs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list, ok := decode(t, rec)["jobs"].([]any)
	if !ok || len(list) != 2 {
		t.Errorf("jobs = %v", list)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	ctl := newMockController()
	srv := NewServer(ctl, ":0")
	id, _ := ctl.AddJob(context.Background(), "http://example.test/a.zip", "")

	steps := []struct {
		method string
		path   string
		wantOK bool
	}{
		{http.MethodPost, "/v1/jobs/" + id + "/pause", true},
		{http.MethodPost, "/v1/jobs/" + id + "/pause", false},
		{http.MethodPost, "/v1/jobs/" + id + "/resume", true},
		{http.MethodDelete, "/v1/jobs/" + id + "/file", true},
		{http.MethodDelete, "/v1/jobs/" + id, true},
		{http.MethodDelete, "/v1/jobs/" + id, true},
	}
	for _, st := range steps {
		rec := do(t, srv, st.method, st.path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s status = %d", st.method, st.path, rec.Code)
		}
		resp := decode(t, rec)
		if resp["ok"] != st.wantOK || resp["id"] != id {
			t.Errorf("%s %s = %v, want ok=%v", st.method, st.path, resp, st.wantOK)
		}
	}
	if len(ctl.removed) != 2 {
		t.Errorf("removed = %v", ctl.removed)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	ctl := newMockController()
	srv := NewServer(ctl, ":0")

	ctl.resumeErr = errors.New("disk full")
	if rec := do(t, srv, http.MethodPost, "/v1/jobs/x/resume", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("resume failure status = %d", rec.Code)
	}
	ctl.fileErr = fmt.Errorf("%w: /etc/passwd", jobs.ErrOutsideDownloadDir)
	if rec := do(t, srv, http.MethodDelete, "/v1/jobs/x/file", ""); rec.Code != http.StatusForbidden {
		t.Errorf("outside dir status = %d", rec.Code)
	}
	if _, err := ctl.AddJob(context.Background(), "http://example.test/busy.zip", ""); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, srv, http.MethodPost, "/v1/jobs", `{"url":"http://example.test/busy.zip"}`); rec.Code != http.StatusConflict {
		t.Errorf("already running status = %d", rec.Code)
	}
	ctl.diskErr = errors.New("statfs failed")
	if rec := do(t, srv, http.MethodGet, "/v1/disk", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("disk failure status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPut, "/v1/jobs", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d", rec.Code)
	}
}

func TestServer_Disk(t *testing.T) {
	rec := do(t, NewServer(newMockController(), ":0"), http.MethodGet, "/v1/disk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var du jobs.DiskUsage
	if err := json.NewDecoder(rec.Body).Decode(&du); err != nil {
		t.Fatal(err)
	}
	if du.Used != 750 || du.Percent != "75.00" {
		t.Errorf("disk = %+v", du)
	}
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	srv := NewServer(newMockController(), "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("shutdown error: %v", err)
	}
}
