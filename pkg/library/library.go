// Package library maintains a versioned, diffable in-memory view of
// on-disk script examples, with optional filesystem watching and
// point-in-time revert of individual changes.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/lualab/luascope/internal/logging"
)

// EnvExamplesDir overrides the default example directory root when no
// directory is supplied explicitly.
const EnvExamplesDir = "LUASCOPE_EXAMPLES_DIR"

// Library keeps the current generation of examples consistent with the
// filesystem. It is constructed via an initial scan and reloaded on every
// Refresh or watcher event; it has no terminal state.
type Library struct {
	dir        string
	logger     *slog.Logger
	benchmarks func(exampleID string) *BenchmarkSummary

	mu       sync.RWMutex
	examples map[string]Example

	version atomic.Uint64

	pendingMu sync.Mutex
	pending   []ScriptChange

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the structured logger used for scan warnings and
// watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithWatch enables the recursive filesystem watcher; any create, write,
// remove or rename under the tree triggers a reload.
func WithWatch() Option {
	return func(l *Library) {
		l.done = make(chan struct{})
	}
}

// WithBenchmarkLookup injects the optional benchmark-summary enrichment
// applied to snapshots. The library does not own benchmark data.
func WithBenchmarkLookup(lookup func(exampleID string) *BenchmarkSummary) Option {
	return func(l *Library) {
		l.benchmarks = lookup
	}
}

// New scans dir into the first generation. An empty dir falls back to
// DefaultDir. The directory is created if missing.
func New(dir string, opts ...Option) (*Library, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	l := &Library{
		dir:    dir,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure examples dir %s: %w", dir, err)
	}

	examples, err := scanExamples(dir, l.logger)
	if err != nil {
		return nil, err
	}
	l.examples = examples
	l.version.Store(1)

	if l.done != nil {
		if err := l.startWatcher(); err != nil {
			return nil, err
		}
	}

	l.logger.Info("example library initialized", "path", dir, "count", len(examples))
	return l, nil
}

// Close stops the watcher, if any.
func (l *Library) Close() error {
	if l.watcher == nil {
		return nil
	}
	close(l.done)
	return l.watcher.Close()
}

// Dir returns the directory root backing this library.
func (l *Library) Dir() string {
	return l.dir
}

// Version returns the current generation counter. It strictly increases on
// every reload, so consumers detect staleness by comparison, never by
// content inspection.
func (l *Library) Version() uint64 {
	return l.version.Load()
}

// Refresh re-scans the directory, swaps the stored map, bumps the version
// unconditionally and queues the changes between the two generations.
func (l *Library) Refresh() error {
	next, err := scanExamples(l.dir, l.logger)
	if err != nil {
		return err
	}

	l.mu.Lock()
	prev := l.examples
	l.examples = next
	l.mu.Unlock()

	version := l.version.Add(1)

	if changes := diffSnapshots(prev, next); len(changes) > 0 {
		l.pendingMu.Lock()
		l.pending = append(l.pending, changes...)
		l.pendingMu.Unlock()
	}

	l.logger.Debug("examples reloaded", "path", l.dir, "count", len(next), "version", version)
	return nil
}

// Get returns an independent copy of one example.
func (l *Library) Get(id string) (Example, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.examples[id]
	if !ok {
		return Example{}, false
	}
	e = e.clone()
	l.enrich(&e)
	return e, true
}

// Snapshot returns the current generation as independent copies sorted by
// id, each enriched with any injected benchmark summary.
func (l *Library) Snapshot() []Example {
	l.mu.RLock()
	out := make([]Example, 0, len(l.examples))
	for _, e := range l.examples {
		out = append(out, e.clone())
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.ID < out[j].Metadata.ID
	})
	for i := range out {
		l.enrich(&out[i])
	}
	return out
}

func (l *Library) enrich(e *Example) {
	if l.benchmarks != nil {
		e.BenchmarkSummary = l.benchmarks(e.Metadata.ID)
	}
}

// TakeRecentChanges atomically drains and returns the pending change
// queue. With no intervening reload, repeated calls return nothing.
func (l *Library) TakeRecentChanges() []ScriptChange {
	l.pendingMu.Lock()
	defer l.pendingMu.Unlock()
	changes := l.pending
	l.pending = nil
	return changes
}

// Revert writes a change's previous content back to its path, or deletes
// the file when there was no previous content. It is a raw filesystem
// write; callers are expected to Refresh afterward.
func (l *Library) Revert(change ScriptChange) error {
	if change.Previous == nil {
		if err := os.Remove(change.Path); err != nil {
			return fmt.Errorf("remove %s: %w", change.Path, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(change.Path), 0o755); err != nil {
		return fmt.Errorf("ensure parent of %s: %w", change.Path, err)
	}
	if err := os.WriteFile(change.Path, []byte(*change.Previous), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", change.Path, err)
	}
	return nil
}

// DefaultDir resolves the example root: the environment override first,
// then an examples/ directory next to (or above) the executable, then a
// plain relative examples/.
func DefaultDir() string {
	if dir := os.Getenv(EnvExamplesDir); dir != "" {
		return dir
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, candidate := range []string{
			filepath.Join(exeDir, "examples"),
			filepath.Join(filepath.Dir(exeDir), "examples"),
		} {
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				return candidate
			}
		}
	}

	return "examples"
}
