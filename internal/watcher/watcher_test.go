package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("New error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{0, "NONE"},
		{OpWrite, "WRITE"},
		{OpCreate | OpWrite, "CREATE|WRITE"},
		{Op(1 << 10), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestWatcher_WatchUnwatch(t *testing.T) {
	w := newTestWatcher(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.lua")
	b := filepath.Join(dir, "b.lua")
	writeFile(t, a, "return 1")
	writeFile(t, b, "return 2")

	if err := w.Watch(a); err != nil {
		t.Fatalf("Watch(a) error = %v", err)
	}
	if err := w.Watch(b); err != nil {
		t.Fatalf("Watch(b) error = %v", err)
	}
	if err := w.Watch(a); !errors.Is(err, ErrAlreadyWatching) {
		t.Errorf("Watch again error = %v, want ErrAlreadyWatching", err)
	}
	if got := w.WatchedPaths(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("WatchedPaths = %v", got)
	}
	if w.dirs[dir] != 2 {
		t.Errorf("dir refcount = %d, want 2", w.dirs[dir])
	}

	if err := w.Unwatch(a); err != nil {
		t.Fatalf("Unwatch error = %v", err)
	}
	if w.IsWatching(a) || !w.IsWatching(b) {
		t.Error("IsWatching wrong after Unwatch(a)")
	}
	if err := w.Unwatch(a); !errors.Is(err, ErrNotWatching) {
		t.Errorf("Unwatch again error = %v, want ErrNotWatching", err)
	}
	if err := w.Unwatch(b); err != nil {
		t.Fatalf("Unwatch(b) error = %v", err)
	}
	if _, ok := w.dirs[dir]; ok {
		t.Error("directory still tracked after last file unwatched")
	}
}

func TestWatcher_WatchErrors(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.Watch(filepath.Join(t.TempDir(), "missing.lua")); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("Watch missing error = %v, want ErrPathNotExist", err)
	}
	if err := w.Watch(t.TempDir()); err == nil {
		t.Error("Watch directory should fail")
	}

	w.Close()
	path := filepath.Join(t.TempDir(), "x.lua")
	writeFile(t, path, "")
	if err := w.Watch(path); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Watch after Close error = %v, want ErrWatcherClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close error = %v", err)
	}
}

func TestWatcher_DetectsWrite(t *testing.T) {
	w := newTestWatcher(t, WithDebounceDelay(20*time.Millisecond))
	path := filepath.Join(t.TempDir(), "t.lua")
	writeFile(t, path, "return 'a'")
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	writeFile(t, path, "return 'b'")
	ev := waitEvent(t, w)
	if ev.Path != path {
		t.Errorf("event path = %q, want %q", ev.Path, path)
	}
	if !ev.Op.Has(OpWrite) {
		t.Errorf("event op = %v, want WRITE", ev.Op)
	}
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	w := newTestWatcher(t, WithDebounceDelay(0))
	dir := t.TempDir()
	path := filepath.Join(dir, "t.lua")
	writeFile(t, path, "")
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	writeFile(t, filepath.Join(dir, "other.lua"), "x")
	writeFile(t, path, "y")

	ev := waitEvent(t, w)
	if ev.Path != path {
		t.Errorf("event for %q, want only %q", ev.Path, path)
	}
}

func TestWatcher_DetectsRenameOver(t *testing.T) {
	w := newTestWatcher(t, WithDebounceDelay(20*time.Millisecond))
	dir := t.TempDir()
	path := filepath.Join(dir, "t.lua")
	writeFile(t, path, "old")
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	tmp := filepath.Join(dir, ".t.lua.swp")
	writeFile(t, tmp, "new")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Rename error = %v", err)
	}

	ev := waitEvent(t, w)
	if !ev.Op.Has(OpCreate) {
		t.Errorf("event op = %v, want CREATE", ev.Op)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	var mu sync.Mutex
	var got []Event
	d := newDebouncer(50*time.Millisecond, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	now := time.Now()
	d.add(Event{Path: "/a", Op: OpCreate, Timestamp: now})
	d.add(Event{Path: "/a", Op: OpWrite, Timestamp: now.Add(time.Millisecond)})
	d.add(Event{Path: "/b", Op: OpWrite, Timestamp: now})
	if d.count() != 2 {
		t.Errorf("pending = %d, want 2", d.count())
	}

	d.flush()
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("emitted %d events, want 2", len(got))
	}
	for _, e := range got {
		if e.Path == "/a" && e.Op != OpCreate|OpWrite {
			t.Errorf("/a op = %v, want CREATE|WRITE", e.Op)
		}
	}
}

func TestWatcher_DebounceStop(t *testing.T) {
	fired := make(chan Event, 1)
	d := newDebouncer(10*time.Millisecond, func(e Event) { fired <- e })
	d.add(Event{Path: "/a", Op: OpWrite})
	d.stop()
	d.add(Event{Path: "/b", Op: OpWrite})

	select {
	case e := <-fired:
		t.Errorf("event %v fired after stop", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatcher_Run(t *testing.T) {
	w := newTestWatcher(t, WithDebounceDelay(10*time.Millisecond))
	path := filepath.Join(t.TempDir(), "t.lua")
	writeFile(t, path, "")
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handled := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(e Event) error {
			handled <- e
			return errors.New("handler failures are logged")
		})
	}()

	writeFile(t, path, "changed")
	select {
	case e := <-handled:
		if e.Path != path {
			t.Errorf("handled %q", e.Path)
		}
	case <-ctx.Done():
		t.Fatal("handler never called")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestWatcher_RunStopsOnClose(t *testing.T) {
	w := newTestWatcher(t)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(context.Background(), func(Event) error { return nil })
	}()

	w.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrWatcherClosed) {
			t.Errorf("Run error = %v, want ErrWatcherClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
