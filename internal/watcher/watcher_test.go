package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFileWatcherAddFilter(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.AddFilter(NoEditorTempFilter)
	watcher.AddFilter(IgnoreFilter([]string{".git"}))
	assert.Len(t, watcher.filters, 2)

	assert.True(t, watcher.accepts("/site/pages/index/index.html"))
	assert.False(t, watcher.accepts("/site/.git/HEAD"))
	assert.False(t, watcher.accepts("/site/pages/index/index.html~"))
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	tempDir := t.TempDir()
	assert.NoError(t, watcher.AddPath(tempDir))

	err = watcher.AddPath(filepath.Join(tempDir, "missing"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid path")

	assert.Error(t, watcher.AddPath(""))
}

func TestAddRecursive(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()
	watcher.AddFilter(IgnoreFilter([]string{"node_modules"}))

	tempDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "pages", "index"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(tempDir, "node_modules", "pkg"), 0755))

	require.NoError(t, watcher.AddRecursive(tempDir))

	list := watcher.WatchList()
	assert.Contains(t, list, tempDir)
	assert.Contains(t, list, filepath.Join(tempDir, "pages"))
	assert.Contains(t, list, filepath.Join(tempDir, "pages", "index"))
	assert.NotContains(t, list, filepath.Join(tempDir, "node_modules"))
	assert.NotContains(t, list, filepath.Join(tempDir, "node_modules", "pkg"))

	assert.Error(t, watcher.AddRecursive(filepath.Join(tempDir, "missing")))
}

func TestFileWatcherStartStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	tempDir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(tempDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []ChangeEvent, 10)
	watcher.AddHandler(func(ctx context.Context, events []ChangeEvent) error {
		received <- events
		return nil
	})

	require.NoError(t, watcher.Start(ctx))

	testFile := filepath.Join(tempDir, "index.html")
	require.NoError(t, os.WriteFile(testFile, []byte("<p>one</p>"), 0644))

	select {
	case events := <-received:
		assert.Contains(t, Paths(events), testFile)
	case <-time.After(2 * time.Second):
		t.Fatal("no change batch received")
	}
}

func TestFileWatcherWatchesNewDirectories(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	tempDir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(tempDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	newDir := filepath.Join(tempDir, "pages")
	require.NoError(t, os.Mkdir(newDir, 0755))

	assert.Eventually(t, func() bool {
		for _, p := range watcher.WatchList() {
			if p == newDir {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcherFiltersEvents(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	tempDir := t.TempDir()
	watcher.AddFilter(NoEditorTempFilter)
	require.NoError(t, watcher.AddRecursive(tempDir))

	var mu sync.Mutex
	var seen []string
	watcher.AddHandler(func(ctx context.Context, events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, Paths(events)...)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	swap := filepath.Join(tempDir, "index.html.swp")
	page := filepath.Join(tempDir, "index.html")
	require.NoError(t, os.WriteFile(swap, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(page, []byte("y"), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, page)
	assert.NotContains(t, seen, swap)
}

func TestDebouncer(t *testing.T) {
	debouncer := NewDebouncer(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.add(ChangeEvent{Path: "b.html", Type: EventTypeCreated})
	debouncer.add(ChangeEvent{Path: "a.scss", Type: EventTypeModified})
	debouncer.add(ChangeEvent{Path: "b.html", Type: EventTypeModified})

	select {
	case events := <-debouncer.Output():
		require.Len(t, events, 2)
		assert.Equal(t, "a.scss", events[0].Path)
		assert.Equal(t, "b.html", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}
}

func TestDebouncerFlushEmpty(t *testing.T) {
	debouncer := NewDebouncer(time.Millisecond)
	debouncer.flush()

	select {
	case events := <-debouncer.Output():
		t.Fatalf("unexpected batch %v", events)
	default:
	}
}

func TestDebouncerKeepsBatchWhileHandlerBusy(t *testing.T) {
	debouncer := NewDebouncer(10 * time.Millisecond)
	defer debouncer.stop()
	// Unbuffered and unread: every flush finds the handler busy.
	debouncer.output = make(chan []ChangeEvent)

	debouncer.addEvent(ChangeEvent{Path: "b.html", Type: EventTypeModified})
	time.Sleep(50 * time.Millisecond)

	debouncer.mutex.Lock()
	pending := append([]ChangeEvent(nil), debouncer.pending...)
	debouncer.mutex.Unlock()
	require.Len(t, pending, 1)
	assert.Equal(t, "b.html", pending[0].Path)

	debouncer.addEvent(ChangeEvent{Path: "a.scss", Type: EventTypeCreated})

	select {
	case events := <-debouncer.output:
		assert.Equal(t, []string{"a.scss", "b.html"}, Paths(events))
	case <-time.After(time.Second):
		t.Fatal("deferred batch was never delivered")
	}
}

func TestDebouncerAddWithFullQueue(t *testing.T) {
	debouncer := NewDebouncer(time.Hour)
	defer debouncer.stop()
	// Nothing drains the queue.
	debouncer.events = make(chan ChangeEvent)

	debouncer.add(ChangeEvent{Path: "index.html", Type: EventTypeModified})

	debouncer.mutex.Lock()
	defer debouncer.mutex.Unlock()
	require.Len(t, debouncer.pending, 1)
	assert.Equal(t, "index.html", debouncer.pending[0].Path)
}

func TestDebouncerStoppedDropsFlush(t *testing.T) {
	debouncer := NewDebouncer(time.Hour)
	debouncer.addEvent(ChangeEvent{Path: "a.html"})
	debouncer.stop()
	debouncer.flush()

	select {
	case events := <-debouncer.Output():
		t.Fatalf("unexpected batch after stop %v", events)
	default:
	}
}

func TestFileWatcherDoubleStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestPaths(t *testing.T) {
	events := []ChangeEvent{
		{Path: "c"}, {Path: "a"}, {Path: "c"}, {Path: "b"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, Paths(events))
	assert.Empty(t, Paths(nil))
}

func TestIgnoreFilter(t *testing.T) {
	filter := IgnoreFilter([]string{".git", "node_modules", "*.bak"})

	testCases := []struct {
		path     string
		expected bool
	}{
		{"/site/edit-me/pages/index/index.html", true},
		{"/site/.git/HEAD", false},
		{"/site/edit-me/node_modules/x/index.js", false},
		{"/site/edit-me/page.html.bak", false},
		{"relative/file.scss", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, filter(tc.path))
		})
	}
}

func TestExcludeFilter(t *testing.T) {
	root := t.TempDir()
	output := filepath.Join(root, "out")
	state := filepath.Join(root, ".last_compiled")
	filter := ExcludeFilter(output, state)

	assert.False(t, filter(output))
	assert.False(t, filter(filepath.Join(output, "index.html")))
	assert.False(t, filter(state))
	assert.True(t, filter(filepath.Join(root, "output-notes.txt")))
	assert.True(t, filter(filepath.Join(root, "outer", "index.html")))
}

func TestNoEditorTempFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"index.html", true},
		{"style.scss", true},
		{"index.html~", false},
		{".index.html.swp", false},
		{".#index.html", false},
		{"4913", false},
		{"notes.tmp", false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoEditorTempFilter(tc.path))
		})
	}
}
