// Package harness executes script-declared test suites with isolated
// per-case output capture. Every suite runs on a fresh interpreter host so
// tests never interfere with interactive execution or with each other.
package harness

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/lualab/luascope/internal/logging"
	"github.com/lualab/luascope/pkg/host"
	"github.com/lualab/luascope/pkg/library"
)

// ErrNoTests is returned when a suite script exports no test registry.
var ErrNoTests = errors.New("no test cases declared")

// Status is the outcome of one test case.
type Status int

const (
	Passed Status = iota
	Failed
)

func (s Status) String() string {
	if s == Passed {
		return "passed"
	}
	return "failed"
}

// CaseResult is the outcome of one test case, including output captured
// in isolation while the case ran.
type CaseResult struct {
	Name     string
	Status   Status
	Duration time.Duration
	Stdout   string
	Stderr   string
	// Error is set only when Status is Failed.
	Error string
}

// SuiteResult is the ephemeral outcome of one suite run; never persisted.
type SuiteResult struct {
	SuiteID     string
	SuiteName   string
	Description string
	Path        string
	SetupStdout string
	SetupStderr string
	Cases       []CaseResult
	// TotalDuration is the sum of case durations, not the wall clock of
	// the whole run (which also includes the setup pass).
	TotalDuration time.Duration
	Passed        bool
}

// Harness runs test suites against independent interpreter hosts.
type Harness struct {
	logger  *slog.Logger
	newHost func() *host.Host
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithHostFactory overrides how the per-suite host is constructed, e.g. to
// carry the application's host bindings into test runs.
func WithHostFactory(factory func() *host.Host) Option {
	return func(h *Harness) {
		h.newHost = factory
	}
}

// New constructs a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.newHost == nil {
		logger := h.logger
		h.newHost = func() *host.Host {
			return host.New(host.WithLogger(logger))
		}
	}
	return h
}

// RunSuite evaluates the suite script once as a setup pass, discovers the
// exported test registry and runs each declared case with pre/post hook
// semantics.
//
// A test registry is an exported global table carrying at least one
// function-valued key prefixed "test", plus optional "pre_test" and
// "post_test" hooks. When several globals qualify, the lexically first
// export name wins, so selection is deterministic.
func (h *Harness) RunSuite(suite library.TestSuite) (*SuiteResult, error) {
	h.logger.Info("running test suite", "suite", suite.ID, "path", suite.Path)

	hst := h.newHost()
	defer hst.Close()

	setup, err := hst.Execute(suite.Script)
	if err != nil {
		return nil, fmt.Errorf("evaluate test suite %q: %w", suite.Name, err)
	}

	var cases []CaseResult
	err = hst.WithState(func(L *lua.LState) error {
		registry, exportName, err := findRegistry(L)
		if err != nil {
			return fmt.Errorf("suite %q: %w", suite.Name, err)
		}
		h.logger.Debug("discovered test registry", "suite", suite.ID, "export", exportName)
		cases = h.runCases(hst, L, registry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{
		SuiteID:     suite.ID,
		SuiteName:   suite.Name,
		Description: suite.Description,
		Path:        suite.Path,
		SetupStdout: setup.Stdout,
		SetupStderr: setup.Stderr,
		Cases:       cases,
		Passed:      true,
	}
	for _, c := range cases {
		result.TotalDuration += c.Duration
		if c.Status != Passed {
			result.Passed = false
		}
	}

	h.logger.Info("test suite finished",
		"suite", suite.ID, "cases", len(cases), "passed", result.Passed)
	return result, nil
}

// RunSuites runs each suite independently and sequentially; one suite's
// failure to run does not abort the others. Errors are joined.
func (h *Harness) RunSuites(suites []library.TestSuite) ([]*SuiteResult, error) {
	var results []*SuiteResult
	var errs []error
	for _, suite := range suites {
		result, err := h.RunSuite(suite)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// findRegistry enumerates the exported globals for test registries and
// picks the lexically first qualifying export name.
func findRegistry(L *lua.LState) (*lua.LTable, string, error) {
	candidates := map[string]*lua.LTable{}
	var names []string

	L.G.Global.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok || string(name) == "_G" {
			return
		}
		table, ok := value.(*lua.LTable)
		if !ok {
			return
		}
		if len(caseNames(table)) > 0 {
			candidates[string(name)] = table
			names = append(names, string(name))
		}
	})

	if len(names) == 0 {
		return nil, "", ErrNoTests
	}
	sort.Strings(names)
	return candidates[names[0]], names[0], nil
}

// caseNames lists the registry's test-case keys in lexical order. Lua
// tables do not preserve declaration order, so lexical order stands in for
// it deterministically.
func caseNames(registry *lua.LTable) []string {
	var names []string
	registry.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			return
		}
		if _, isFn := value.(*lua.LFunction); !isFn {
			return
		}
		if strings.HasPrefix(string(name), "test") {
			names = append(names, string(name))
		}
	})
	sort.Strings(names)
	return names
}

func (h *Harness) runCases(hst *host.Host, L *lua.LState, registry *lua.LTable) []CaseResult {
	pre := hookFn(registry, "pre_test")
	post := hookFn(registry, "post_test")

	var cases []CaseResult
	for _, name := range caseNames(registry) {
		// Hooks and earlier cases run arbitrary script code and may have
		// removed or replaced this entry since discovery.
		fn, ok := registry.RawGetString(name).(*lua.LFunction)
		if !ok {
			cases = append(cases, CaseResult{
				Name:   name,
				Status: Failed,
				Error:  "test case is no longer a function",
			})
			continue
		}

		status := Passed
		var failure string

		hst.ClearOutput()
		start := time.Now()

		if pre != nil {
			if err := callStage(L, registry, pre); err != nil {
				status = Failed
				failure = "pre-test failed: " + err.Error()
			}
		}
		if status == Passed {
			if err := callStage(L, registry, fn); err != nil {
				status = Failed
				failure = err.Error()
			}
		}
		if status == Passed && post != nil {
			if err := callStage(L, registry, post); err != nil {
				status = Failed
				failure = "post-test failed: " + err.Error()
			}
		}

		duration := time.Since(start)
		cases = append(cases, CaseResult{
			Name:     name,
			Status:   status,
			Duration: duration,
			Stdout:   hst.TakeStdout(),
			Stderr:   hst.TakeStderr(),
			Error:    failure,
		})
	}
	return cases
}

func hookFn(registry *lua.LTable, name string) *lua.LFunction {
	if fn, ok := registry.RawGetString(name).(*lua.LFunction); ok {
		return fn
	}
	return nil
}

// callStage invokes one stage function with the registry table as its
// implicit receiver.
func callStage(L *lua.LState, registry *lua.LTable, fn *lua.LFunction) error {
	err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, registry)
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != lua.LNil {
		return errors.New(apiErr.Object.String())
	}
	return err
}
