package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/spf13/afero"
)

func newTestWatcher(t *testing.T, dir string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithOutput(&bytes.Buffer{}, false)}, opts...)
	w, err := NewWatcher(dir, config.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func isPending(w *Watcher, path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[path]
	return ok
}

func clearPending(w *Watcher) {
	w.mu.Lock()
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, DefaultDebounce},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, DefaultDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir, WithDebounce(tt.debounce))

			if w.fsWatcher == nil {
				t.Error("fsWatcher should not be nil")
			}
			if w.scanner == nil {
				t.Error("scanner should not be nil")
			}
			if w.path != tmpDir {
				t.Errorf("path = %v, want %v", w.path, tmpDir)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestNewWatcher_NilConfig(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()
	if w.config == nil {
		t.Error("config should default")
	}
}

func TestWatcher_SetCallback(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	if w.callback != nil {
		t.Error("callback should be nil initially")
	}
	w.SetCallback(func(string) {})
	if w.callback == nil {
		t.Error("callback should be set")
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcher_WatchedFiles(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	if err := w.fsWatcher.Add(tmpDir); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	found := false
	for _, f := range w.WatchedFiles() {
		if f == tmpDir {
			found = true
		}
	}
	if !found {
		t.Errorf("WatchedFiles() should contain %v", tmpDir)
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"app.go", "new.go", "removed.go", "changed.go", "readme.txt", "script.py"} {
		writeFile(t, filepath.Join(tmpDir, name), "x\n")
	}
	w := newTestWatcher(t, tmpDir)

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write event for go file", fsnotify.Event{Name: filepath.Join(tmpDir, "app.go"), Op: fsnotify.Write}, true},
		{"create event for go file", fsnotify.Event{Name: filepath.Join(tmpDir, "new.go"), Op: fsnotify.Create}, true},
		{"remove event ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "removed.go"), Op: fsnotify.Remove}, false},
		{"chmod event ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "changed.go"), Op: fsnotify.Chmod}, false},
		{"unsupported file type ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "readme.txt"), Op: fsnotify.Write}, false},
		{"python file supported", fsnotify.Event{Name: filepath.Join(tmpDir, "script.py"), Op: fsnotify.Write}, true},
		{"missing file ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "gone.py"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPending(w)
			w.handleEvent(tt.event)
			if got := isPending(w, tt.event.Name); got != tt.wantPending {
				t.Errorf("pending[%v] = %v, want %v", tt.event.Name, got, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEvent_Excluded(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "vendor", "lib.go"), "package lib\n")
	writeFile(t, filepath.Join(tmpDir, "bundle.min.js"), "x\n")
	writeFile(t, filepath.Join(tmpDir, "main.go"), "package main\n")
	w := newTestWatcher(t, tmpDir)

	tests := []struct {
		name        string
		path        string
		wantPending bool
	}{
		{"vendor file excluded", filepath.Join(tmpDir, "vendor", "lib.go"), false},
		{"minified file excluded", filepath.Join(tmpDir, "bundle.min.js"), false},
		{"normal file not excluded", filepath.Join(tmpDir, "main.go"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPending(w)
			w.handleEvent(fsnotify.Event{Name: tt.path, Op: fsnotify.Write})
			if got := isPending(w, tt.path); got != tt.wantPending {
				t.Errorf("pending[%v] = %v, want %v", tt.path, got, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEvent_NewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	sub := filepath.Join(tmpDir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	w.handleEvent(fsnotify.Event{Name: sub, Op: fsnotify.Create})

	found := false
	for _, f := range w.WatchedFiles() {
		if f == sub {
			found = true
		}
	}
	if !found {
		t.Errorf("new directory %v should be watched", sub)
	}
	if isPending(w, sub) {
		t.Error("directories should not be queued for analysis")
	}
}

func TestWatcher_processPending(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), WithDebounce(10*time.Millisecond))

	var called atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	w.SetCallback(func(string) {
		called.Add(1)
		wg.Done()
	})

	path := filepath.Join(w.path, "a.go")
	w.mu.Lock()
	w.pending[path] = time.Now().Add(-time.Second)
	w.mu.Unlock()

	w.processPending()
	wg.Wait()

	if called.Load() != 1 {
		t.Errorf("callback called %d times, want 1", called.Load())
	}
	if isPending(w, path) {
		t.Error("processed file should be removed from pending")
	}
}

func TestWatcher_processPending_NotReady(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), WithDebounce(time.Hour))

	var called atomic.Int32
	w.SetCallback(func(string) { called.Add(1) })

	path := filepath.Join(w.path, "a.go")
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()

	w.processPending()
	time.Sleep(20 * time.Millisecond)

	if called.Load() != 0 {
		t.Error("callback should not run before the debounce period")
	}
	if !isPending(w, path) {
		t.Error("file should stay pending")
	}
}

func TestWatcher_processPending_NoCallback(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), WithDebounce(time.Millisecond))

	path := filepath.Join(w.path, "a.go")
	w.mu.Lock()
	w.pending[path] = time.Now().Add(-time.Second)
	w.mu.Unlock()

	w.processPending()
	if isPending(w, path) {
		t.Error("file should be removed even without a callback")
	}
}

func TestWatcher_processPending_Serialized(t *testing.T) {
	var out bytes.Buffer
	w := newTestWatcher(t, t.TempDir(), WithDebounce(time.Millisecond), WithOutput(&out, false))

	var active, overlaps atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	w.SetCallback(func(path string) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Millisecond)
		out.WriteString("analyzed " + filepath.Base(path) + "\n")
		active.Add(-1)
		wg.Done()
	})

	w.mu.Lock()
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		w.pending[filepath.Join(w.path, name)] = time.Now().Add(-time.Second)
	}
	w.mu.Unlock()

	w.processPending()
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("callbacks overlapped %d times", n)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var blocks int
	for i, line := range lines {
		name, ok := strings.CutPrefix(line, "File changed: ")
		if !ok {
			continue
		}
		blocks++
		if i+2 >= len(lines) || lines[i+2] != "analyzed "+name {
			t.Errorf("header for %s not followed by its analysis:\n%s", name, out.String())
		}
	}
	if blocks != 3 {
		t.Errorf("got %d change headers, want 3", blocks)
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := w.Start(ctx); err != context.DeadlineExceeded {
		t.Errorf("Start() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, WithDebounce(20*time.Millisecond))

	changed := make(chan string, 1)
	w.SetCallback(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join(tmpDir, "app.py")
	writeFile(t, target, "def f():\n    return 1\n")

	select {
	case got := <-changed:
		if got != target {
			t.Errorf("callback path = %v, want %v", got, target)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("callback was not called")
	}
}

func TestWatcher_Start_ExcludedDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "node_modules", "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	w := newTestWatcher(t, tmpDir)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = w.Start(ctx)

	for _, f := range w.WatchedFiles() {
		if strings.Contains(f, "node_modules") {
			t.Errorf("excluded directory %v is watched", f)
		}
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "a.go")
	writeFile(t, path, "package a\n")
	w := newTestWatcher(t, tmpDir, WithDebounce(50*time.Millisecond))

	var called atomic.Int32
	w.SetCallback(func(string) { called.Add(1) })

	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: path, Op: fsnotify.Write})
		w.processPending()
	}
	time.Sleep(80 * time.Millisecond)
	w.processPending()
	time.Sleep(20 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("callback called %d times, want 1", called.Load())
	}
}

func TestWatcher_ConcurrentHandleEvent(t *testing.T) {
	tmpDir := t.TempDir()
	var paths []string
	for i := 0; i < 10; i++ {
		p := filepath.Join(tmpDir, "f"+string(rune('a'+i))+".go")
		writeFile(t, p, "package f\n")
		paths = append(paths, p)
	}
	w := newTestWatcher(t, tmpDir)

	var wg sync.WaitGroup
	for _, p := range paths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Write})
		}(p)
	}
	wg.Wait()

	w.mu.Lock()
	n := len(w.pending)
	w.mu.Unlock()
	if n != len(paths) {
		t.Errorf("pending = %d, want %d", n, len(paths))
	}
}

func TestReporter(t *testing.T) {
	mem, err := source.NewMemory(map[string]string{
		"app.py": "import os\n\n\ndef run():\n    \"\"\"Run.\"\"\"\n    return 1\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	a := quality.New(quality.WithSource(mem))
	defer a.Close()

	var out bytes.Buffer
	r := NewReporter(a, &out, false)
	ctx := context.Background()

	fresh, err := r.Report(ctx, "app.py")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(fresh.Issues) != 1 {
		t.Fatalf("first report issues = %d, want 1", len(fresh.Issues))
	}
	if !strings.Contains(out.String(), "+ app.py:1 [low] Unused import 'os'") {
		t.Errorf("output missing new issue:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "grade ") {
		t.Errorf("output missing summary line:\n%s", out.String())
	}

	out.Reset()
	fresh, err = r.Report(ctx, "app.py")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if fresh.FindingCount() != 0 {
		t.Errorf("unchanged file reported %d new findings", fresh.FindingCount())
	}
	if !strings.Contains(out.String(), "no new findings") {
		t.Errorf("output = %q, want no new findings", out.String())
	}

	out.Reset()
	src := "import os\nimport sys\n\n\ndef run():\n    \"\"\"Run.\"\"\"\n    return eval('1')\n"
	if err := afero.WriteFile(mem.Fs(), "app.py", []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	fresh, err = r.Report(ctx, "app.py")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(fresh.Issues) != 1 || fresh.Issues[0].Message != "Unused import 'sys'" {
		t.Errorf("new issues = %+v, want only the sys import", fresh.Issues)
	}
	if len(fresh.Security.Issues) != 1 {
		t.Errorf("new security findings = %d, want 1", len(fresh.Security.Issues))
	}
	if strings.Contains(out.String(), "'os'") {
		t.Errorf("known issue reported again:\n%s", out.String())
	}
}

func TestReporter_Prime(t *testing.T) {
	mem, err := source.NewMemory(map[string]string{"app.py": "import os\n"})
	if err != nil {
		t.Fatal(err)
	}
	a := quality.New(quality.WithSource(mem))
	defer a.Close()

	project, err := a.Analyze(context.Background(), []string{"app.py"})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	r := NewReporter(a, &out, false)
	r.Prime(project)

	fresh, err := r.Report(context.Background(), "app.py")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.FindingCount() != 0 {
		t.Errorf("primed file reported %d new findings", fresh.FindingCount())
	}
}

func TestReporter_MissingFile(t *testing.T) {
	mem, err := source.NewMemory(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := quality.New(quality.WithSource(mem))
	defer a.Close()

	var out bytes.Buffer
	r := NewReporter(a, &out, false)
	if _, err := r.Report(context.Background(), "nope.py"); err == nil {
		t.Error("Report() should fail for a missing file")
	}
	if out.Len() == 0 {
		t.Error("error should be printed")
	}
}

func TestReporter_ConcurrentReportsStayWhole(t *testing.T) {
	mem, err := source.NewMemory(map[string]string{
		"a.py": "import os\n",
		"b.py": "import sys\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	a := quality.New(quality.WithSource(mem))
	defer a.Close()

	var out bytes.Buffer
	r := NewReporter(a, &out, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		path := "a.py"
		if i%2 == 1 {
			path = "b.py"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Report(context.Background(), path); err != nil {
				t.Errorf("Report(%s) error = %v", path, err)
			}
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 40 {
		t.Fatalf("got %d lines, want 40:\n%s", len(lines), out.String())
	}
	for i, line := range lines {
		isSummary := strings.HasPrefix(line, "  grade ")
		if isSummary != (i%2 == 0) {
			t.Fatalf("line %d out of place, reports interleaved:\n%s", i, out.String())
		}
	}
}

func BenchmarkHandleEvent(b *testing.B) {
	tmpDir := b.TempDir()
	path := filepath.Join(tmpDir, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		b.Fatal(err)
	}
	w, err := NewWatcher(tmpDir, config.DefaultConfig(), WithOutput(&bytes.Buffer{}, false))
	if err != nil {
		b.Fatal(err)
	}
	defer w.Stop()

	event := fsnotify.Event{Name: path, Op: fsnotify.Write}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.handleEvent(event)
	}
}
