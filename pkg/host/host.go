// Package host owns a single embedded Lua interpreter and drives script
// execution with captured output, an optional wall-clock execution limit,
// replayable host bindings and native extension loading.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lualab/luascope/internal/logging"
)

// Output is the result of one script execution. Both buffers are drained
// exactly once per call, success or failure.
type Output struct {
	// ReturnValue is the stringified result of the script, nil when the
	// script evaluated to nil (or returned nothing).
	ReturnValue *string
	Stdout      string
	Stderr      string
	Duration    time.Duration
}

// ScriptError is a compile or runtime failure inside the interpreter,
// carrying the interpreter's diagnostic text.
type ScriptError struct {
	Stage  string // "compile" or "runtime"
	Detail string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s error: %s", e.Stage, e.Detail)
}

// ExtensionError is a native extension load failure.
type ExtensionError struct {
	Path   string
	Op     string // "open", "resolve" or "init"
	Detail string
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("extension %s failed for %q: %s", e.Op, e.Path, e.Detail)
}

// binding is a host function or module replayed into every interpreter
// instance, including rebuilt ones.
type binding struct {
	name    string
	install func(L *lua.LState)
}

// Host is a thread-safe single point of script execution. All interpreter
// access is serialized through one lock; concurrent callers block rather
// than fail.
type Host struct {
	logger *slog.Logger

	mu       sync.Mutex
	state    *lua.LState
	limit    time.Duration // 0 means no execution limit
	bindings []binding
	byName   map[string]int

	stdout *Buffer
	stderr *Buffer

	profiling atomic.Bool

	// Handles of loaded native extension libraries, retained for the
	// process lifetime. Never unloaded.
	extensions []uintptr
	selfHandle uintptr
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets a structured logger for the host.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithExecutionLimit sets the initial wall-clock limit for script runs.
func WithExecutionLimit(limit time.Duration) Option {
	return func(h *Host) {
		h.limit = limit
	}
}

// New constructs a Host with a fresh interpreter instance.
func New(opts ...Option) *Host {
	h := &Host{
		logger: logging.NewNop(),
		byName: map[string]int{},
		stdout: &Buffer{},
		stderr: &Buffer{},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.state = h.newState()
	return h
}

// Close releases the interpreter. Loaded extension libraries stay mapped.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != nil {
		h.state.Close()
		h.state = nil
	}
}

// newState builds a bare interpreter, installs the builtin namespaces and
// replays every registered host binding.
func (h *Host) newState() *lua.LState {
	L := lua.NewState()
	h.installBuiltins(L)
	for _, b := range h.bindings {
		b.install(L)
	}
	return L
}

// rebuildLocked tears down the interpreter and starts over from a bare
// instance. Bindings survive because newState replays them.
func (h *Host) rebuildLocked() {
	if h.state != nil {
		h.state.Close()
	}
	h.state = h.newState()
	h.logger.Debug("interpreter rebuilt", "execution_limit", h.limit, "bindings", len(h.bindings))
}

// Execute compiles and runs a script under the currently configured
// execution limit.
func (h *Host) Execute(script string) (*Output, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executeLocked(script)
}

// ExecuteWithTimeout runs a script under the given wall-clock limit. When
// the limit differs from the configured one the interpreter is rebuilt with
// the new limit before running; the limit is zero for "no limit".
func (h *Host) ExecuteWithTimeout(script string, limit time.Duration) (*Output, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit != h.limit {
		h.limit = limit
		h.rebuildLocked()
	}
	return h.executeLocked(script)
}

// SetExecutionLimit changes the wall-clock limit, rebuilding the interpreter
// and replaying host bindings.
func (h *Host) SetExecutionLimit(limit time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit == h.limit {
		return
	}
	h.limit = limit
	h.rebuildLocked()
}

// ExecutionLimit returns the currently configured limit.
func (h *Host) ExecutionLimit() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.limit
}

// SetProfiling toggles the lock-free profiling flag consulted per execution.
func (h *Host) SetProfiling(enabled bool) {
	h.profiling.Store(enabled)
}

// ProfilingEnabled reports whether profiling is on.
func (h *Host) ProfilingEnabled() bool {
	return h.profiling.Load()
}

func (h *Host) executeLocked(script string) (*Output, error) {
	h.stdout.Reset()
	h.stderr.Reset()

	profiled := h.profiling.Load()
	start := time.Now()

	// Expression convention: try the chunk as "return <script>" first so
	// bare expressions like "1 + 2" yield a value, then fall back to the
	// raw source for full scripts.
	fn, err := h.state.LoadString("return " + script)
	if err != nil {
		fn, err = h.state.LoadString(script)
	}
	if err != nil {
		out := h.drain(time.Since(start))
		return out, &ScriptError{Stage: "compile", Detail: err.Error()}
	}

	var cancel context.CancelFunc
	limited := h.limit > 0
	if limited {
		var ctx context.Context
		ctx, cancel = context.WithTimeout(context.Background(), h.limit)
		defer cancel()
		h.state.SetContext(ctx)
	}

	base := h.state.GetTop()
	h.state.Push(fn)
	callErr := h.state.PCall(0, lua.MultRet, nil)

	timedOut := false
	if limited {
		if ctx := h.state.Context(); ctx != nil && ctx.Err() != nil {
			timedOut = true
		}
		h.state.RemoveContext()
		cancel()
	}

	var returnValue *string
	if callErr == nil && h.state.GetTop() > base {
		if v := h.state.Get(base + 1); v != lua.LNil {
			s := v.String()
			returnValue = &s
		}
	}
	h.state.SetTop(base)

	out := h.drain(time.Since(start))
	out.ReturnValue = returnValue

	// A state that hit its deadline cannot be reused; start over so the
	// next caller gets a working interpreter with the same bindings.
	if timedOut {
		h.rebuildLocked()
	}

	if profiled {
		h.logger.Info("profiled execution",
			"duration", out.Duration,
			"succeeded", callErr == nil,
			"stdout_bytes", len(out.Stdout),
			"stderr_bytes", len(out.Stderr))
	}

	if callErr != nil {
		return out, &ScriptError{Stage: "runtime", Detail: scriptErrorDetail(callErr)}
	}
	return out, nil
}

func (h *Host) drain(elapsed time.Duration) *Output {
	return &Output{
		Stdout:   h.stdout.Take(),
		Stderr:   h.stderr.Take(),
		Duration: elapsed,
	}
}

// scriptErrorDetail extracts the interpreter's diagnostic text, preferring
// the raised Lua value over the wrapped Go error string.
func scriptErrorDetail(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != lua.LNil {
		return apiErr.Object.String()
	}
	return err.Error()
}

// RegisterFunction installs a function into the interpreter's global
// namespace and into the binding registry that survives rebuilds.
// Registration is idempotent by name; the last write wins.
func (h *Host) RegisterFunction(name string, fn lua.LGFunction) {
	h.register(binding{
		name: name,
		install: func(L *lua.LState) {
			L.SetGlobal(name, L.NewFunction(fn))
		},
	})
}

// RegisterModule installs a table of functions as a global module, with the
// same replay and last-write-wins semantics as RegisterFunction.
func (h *Host) RegisterModule(name string, exports map[string]lua.LGFunction) {
	h.register(binding{
		name: name,
		install: func(L *lua.LState) {
			mod := L.NewTable()
			L.SetFuncs(mod, exports)
			L.SetGlobal(name, mod)
		},
	})
}

// ReplayInto copies this host's binding registry and current execution
// limit into target, in registration order. A fresh instance created this
// way observes the same configuration as the source host without sharing
// any interpreter state.
func (h *Host) ReplayInto(target *Host) {
	h.mu.Lock()
	bindings := make([]binding, len(h.bindings))
	copy(bindings, h.bindings)
	limit := h.limit
	h.mu.Unlock()

	for _, b := range bindings {
		target.register(b)
	}
	target.SetExecutionLimit(limit)
}

func (h *Host) register(b binding) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i, ok := h.byName[b.name]; ok {
		h.bindings[i] = b
	} else {
		h.byName[b.name] = len(h.bindings)
		h.bindings = append(h.bindings, b)
	}
	b.install(h.state)
}

// WithState runs fn with exclusive access to the interpreter. The test
// harness uses this to drive individual test stages against the same
// instance that evaluated the suite script.
func (h *Host) WithState(fn func(L *lua.LState) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.state)
}

// ClearOutput discards any captured output from both buffers.
func (h *Host) ClearOutput() {
	h.stdout.Reset()
	h.stderr.Reset()
}

// TakeStdout drains the captured standard output.
func (h *Host) TakeStdout() string {
	return h.stdout.Take()
}

// TakeStderr drains the captured standard error.
func (h *Host) TakeStderr() string {
	return h.stderr.Take()
}
