package luascope

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lualab/luascope/internal/logging"
	"github.com/lualab/luascope/pkg/harness"
	"github.com/lualab/luascope/pkg/host"
	"github.com/lualab/luascope/pkg/library"
)

// Version of the luascope module.
const Version = "0.4.0"

// Explorer is the high-level entry point for the library. It owns the
// example repository, the shared execution host and the test harness, and
// is meant to be constructed explicitly and passed to consumers rather
// than reached through global state.
type Explorer struct {
	logger  *slog.Logger
	library *library.Library
	host    *host.Host
	harness *harness.Harness
}

// Option defines a functional option for configuring the Explorer.
type Option func(*config)

type config struct {
	logger     *slog.Logger
	watch      bool
	limit      time.Duration
	benchmarks func(exampleID string) *library.BenchmarkSummary
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithWatch enables filesystem watching of the example directory.
func WithWatch() Option {
	return func(c *config) {
		c.watch = true
	}
}

// WithExecutionLimit sets the initial wall-clock limit for script runs.
func WithExecutionLimit(limit time.Duration) Option {
	return func(c *config) {
		c.limit = limit
	}
}

// WithBenchmarkLookup injects the optional benchmark-summary enrichment
// applied to example snapshots.
func WithBenchmarkLookup(lookup func(exampleID string) *library.BenchmarkSummary) Option {
	return func(c *config) {
		c.benchmarks = lookup
	}
}

// New initializes an Explorer over the given example directory. An empty
// dir resolves through the LUASCOPE_EXAMPLES_DIR override and the default
// search path.
func New(dir string, opts ...Option) (*Explorer, error) {
	cfg := &config{
		logger: logging.New(slog.LevelInfo),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	libOpts := []library.Option{library.WithLogger(cfg.logger)}
	if cfg.watch {
		libOpts = append(libOpts, library.WithWatch())
	}
	if cfg.benchmarks != nil {
		libOpts = append(libOpts, library.WithBenchmarkLookup(cfg.benchmarks))
	}

	lib, err := library.New(dir, libOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialize example library: %w", err)
	}

	shared := host.New(
		host.WithLogger(cfg.logger),
		host.WithExecutionLimit(cfg.limit),
	)

	return &Explorer{
		logger:  cfg.logger,
		library: lib,
		host:    shared,
		harness: harness.New(
			harness.WithLogger(cfg.logger),
			// Fresh instance per suite so tests never share state with
			// interactive runs. Replaying the shared host keeps bindings
			// registered later and limit changes visible to suite runs.
			harness.WithHostFactory(func() *host.Host {
				hst := host.New(host.WithLogger(cfg.logger))
				shared.ReplayInto(hst)
				return hst
			}),
		),
	}, nil
}

// Close releases the watcher and the shared interpreter.
func (e *Explorer) Close() error {
	e.host.Close()
	return e.library.Close()
}

// Library exposes the example repository.
func (e *Explorer) Library() *library.Library {
	return e.library
}

// Host exposes the shared execution host, e.g. for registering bindings
// or loading native extensions.
func (e *Explorer) Host() *host.Host {
	return e.host
}

// Examples returns the current generation of examples, sorted by id.
func (e *Explorer) Examples() []library.Example {
	return e.library.Snapshot()
}

// Example returns one example by id.
func (e *Explorer) Example(id string) (library.Example, bool) {
	return e.library.Get(id)
}

// Refresh re-scans the example directory.
func (e *Explorer) Refresh() error {
	return e.library.Refresh()
}

// LibraryVersion returns the repository generation counter.
func (e *Explorer) LibraryVersion() uint64 {
	return e.library.Version()
}

// TakeRecentChanges drains the pending change queue.
func (e *Explorer) TakeRecentChanges() []library.ScriptChange {
	return e.library.TakeRecentChanges()
}

// Revert undoes one detected change on disk, reloads the repository and
// discards the reload notices created by the revert itself.
func (e *Explorer) Revert(change library.ScriptChange) error {
	if err := e.library.Revert(change); err != nil {
		return err
	}
	e.logger.Info("reverted change", "change", change.Describe())
	if err := e.library.Refresh(); err != nil {
		return fmt.Errorf("reload examples after revert: %w", err)
	}
	e.library.TakeRecentChanges()
	return nil
}

// RunScript executes arbitrary source through the shared host.
func (e *Explorer) RunScript(src string) (*host.Output, error) {
	return e.host.Execute(src)
}

// RunExample executes an example's script with its declared input
// defaults applied.
func (e *Explorer) RunExample(id string) (*host.Output, error) {
	example, ok := e.library.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown example %q", id)
	}

	inputs := map[string]string{}
	for _, input := range example.Metadata.Inputs {
		inputs[input.Name] = input.Default
	}
	return e.runPrepared(example, inputs)
}

// RunExampleWith executes an example's script with the given input values
// exposed to the script as a global "input" table.
func (e *Explorer) RunExampleWith(id string, inputs map[string]string) (*host.Output, error) {
	example, ok := e.library.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown example %q", id)
	}
	return e.runPrepared(example, inputs)
}

func (e *Explorer) runPrepared(example library.Example, inputs map[string]string) (*host.Output, error) {
	e.logger.Info("running example", "example", example.Metadata.ID)
	return e.host.Execute(prepareScript(example.Script, inputs))
}

// prepareScript prefixes the script with a decoded "input" table when any
// input values are supplied.
func prepareScript(script string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return script
	}
	encoded, err := json.Marshal(inputs)
	if err != nil {
		return script
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(string(encoded))
	return fmt.Sprintf("local json = require(\"json\")\ninput = json.decode(\"%s\")\n%s", escaped, script)
}

// RunSuite runs one of an example's test suites.
func (e *Explorer) RunSuite(exampleID, suiteID string) (*harness.SuiteResult, error) {
	example, ok := e.library.Get(exampleID)
	if !ok {
		return nil, fmt.Errorf("unknown example %q", exampleID)
	}
	for _, suite := range example.TestSuites {
		if suite.ID == suiteID {
			return e.harness.RunSuite(suite)
		}
	}
	return nil, fmt.Errorf("example %q has no test suite %q", exampleID, suiteID)
}

// RunAllSuites runs every test suite of an example; one suite's failure to
// run does not abort the others.
func (e *Explorer) RunAllSuites(exampleID string) ([]*harness.SuiteResult, error) {
	example, ok := e.library.Get(exampleID)
	if !ok {
		return nil, fmt.Errorf("unknown example %q", exampleID)
	}
	return e.harness.RunSuites(example.TestSuites)
}
