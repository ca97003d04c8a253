package supervisor_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"mptx/internal/journal"
	"mptx/internal/launcher"
	"mptx/internal/supervisor"
	"mptx/internal/testsupport"
)

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []journal.Launch
	urls     []string
	finished map[string]int
}

func (f *fakeRecorder) Record(_ context.Context, launch *journal.Launch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, *launch)
	return nil
}

func (f *fakeRecorder) UpdateProcess(_ context.Context, _ string, _ int, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return nil
}

func (f *fakeRecorder) Finish(_ context.Context, runID string, code int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finished == nil {
		f.finished = make(map[string]int)
	}
	f.finished[runID] = code
	return nil
}

func stubPlan(t *testing.T, body string) launcher.Plan {
	t.Helper()
	dir := t.TempDir()
	script := testsupport.StubScript(t, dir, "streamlit-stub", body)
	return launcher.Plan{Target: launcher.TargetWebUI, Path: script, Dir: dir}
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	_, portText, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatal(err)
	}
	return port
}

func baseOptions(t *testing.T, plan launcher.Plan) supervisor.Options {
	dir := t.TempDir()
	return supervisor.Options{
		Plan:           plan,
		Host:           "127.0.0.1",
		StartupTimeout: 5 * time.Second,
		PollInterval:   20 * time.Millisecond,
		KillGrace:      time.Second,
		LockPath:       filepath.Join(dir, "serve.lock"),
		LogPath:        filepath.Join(dir, "webui.log"),
		Output:         &bytes.Buffer{},
	}
}

func TestRunStopsGroupOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := baseOptions(t, stubPlan(t, "exec sleep 30\n"))
	opts.Port = serverPort(t, srv)
	opts.Journal = rec
	opts.RunID = "run-serve"
	var readyURL string
	opts.Ready = func(url string) {
		readyURL = url
		cancel()
	}

	start := time.Now()
	code, err := supervisor.Run(ctx, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected clean shutdown code 0, got %d", code)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("shutdown took too long: %s", elapsed)
	}
	if readyURL != srv.URL {
		t.Fatalf("ready url = %q, want %q", readyURL, srv.URL)
	}
	if len(rec.recorded) != 1 || rec.recorded[0].Mode != journal.ModeSupervised || rec.recorded[0].PID == 0 {
		t.Fatalf("unexpected journal record: %+v", rec.recorded)
	}
	if len(rec.urls) != 1 || rec.urls[0] != srv.URL {
		t.Fatalf("unexpected url updates: %v", rec.urls)
	}
	if got, ok := rec.finished["run-serve"]; !ok || got != 0 {
		t.Fatalf("unexpected finish: %v", rec.finished)
	}
}

func TestRunTimeoutKillsChildAndDumpsOutput(t *testing.T) {
	port, err := supervisor.FreePort("127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	opts := baseOptions(t, stubPlan(t, "echo 'loading models slowly'\nexec sleep 30\n"))
	opts.Port = port
	opts.StartupTimeout = 400 * time.Millisecond
	opts.Output = &out

	start := time.Now()
	code, err := supervisor.Run(context.Background(), opts)
	if !errors.Is(err, supervisor.ErrStartupTimeout) {
		t.Fatalf("expected ErrStartupTimeout, got %v", err)
	}
	if code == 0 {
		t.Fatal("expected non-zero exit code on timeout")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("child was not killed promptly: %s", elapsed)
	}
	if !strings.Contains(out.String(), "loading models slowly") {
		t.Fatalf("expected captured output, got %q", out.String())
	}
}

func TestRunChildExitsBeforeReady(t *testing.T) {
	port, err := supervisor.FreePort("127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	opts := baseOptions(t, stubPlan(t, "echo 'No module named streamlit' >&2\nexit 3\n"))
	opts.Port = port
	opts.Output = &out

	code, err := supervisor.Run(context.Background(), opts)
	if !errors.Is(err, supervisor.ErrExitedEarly) {
		t.Fatalf("expected ErrExitedEarly, got %v", err)
	}
	if code != 3 {
		t.Fatalf("expected child code 3, got %d", code)
	}
	if !strings.Contains(out.String(), "No module named streamlit") {
		t.Fatalf("expected stderr in captured output, got %q", out.String())
	}
}

func TestRunPropagatesExitAfterReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	opts := baseOptions(t, stubPlan(t, "sleep 1\nexit 4\n"))
	opts.Port = serverPort(t, srv)

	code, err := supervisor.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 4 {
		t.Fatalf("expected code 4, got %d", code)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	opts := baseOptions(t, stubPlan(t, "exit 0\n"))
	held := flock.New(opts.LockPath)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: %v", err)
	}
	defer held.Unlock()

	if _, err := supervisor.Run(context.Background(), opts); !errors.Is(err, supervisor.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunOpensBrowserWhenRequested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := baseOptions(t, stubPlan(t, "exec sleep 30\n"))
	opts.Port = serverPort(t, srv)
	opts.OpenBrowser = true
	var opened string
	opts.Opener = func(url string) error {
		opened = url
		cancel()
		return nil
	}

	if _, err := supervisor.Run(ctx, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if opened != srv.URL {
		t.Fatalf("opened %q, want %q", opened, srv.URL)
	}
}

func TestServeArgs(t *testing.T) {
	got := strings.Join(supervisor.ServeArgs("127.0.0.1", 8765), " ")
	want := "--server.port=8765 --server.address=127.0.0.1 --server.headless=true"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
