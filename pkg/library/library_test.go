package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lualab/luascope/internal/logging"
	"github.com/lualab/luascope/pkg/library"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeExample(t *testing.T, root, folder, title, script string) {
	t.Helper()
	dir := filepath.Join(root, folder)
	writeFile(t, filepath.Join(dir, "meta.json"),
		`{"title": "`+title+`", "description": "desc for `+title+`", "categories": ["demo"]}`)
	writeFile(t, filepath.Join(dir, "script.lua"), script)
}

func newLibrary(t *testing.T, dir string, opts ...library.Option) *library.Library {
	t.Helper()
	opts = append([]library.Option{library.WithLogger(logging.NewNop())}, opts...)
	lib, err := library.New(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestScanAndGet(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")
	writeFile(t, filepath.Join(root, "alpha", "README.md"),
		"# Alpha\n\nThe first non-heading paragraph\nspanning two lines.\n\nSecond paragraph.\n")
	writeFile(t, filepath.Join(root, "alpha", "tests", "smoke.lua"),
		"-- Title: Smoke\nt = { test_ok = function(self) end }\n")

	lib := newLibrary(t, root)

	example, ok := lib.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", example.Metadata.ID, "id defaults to the folder name")
	assert.Equal(t, "Alpha", example.Metadata.Title)
	assert.Equal(t, "return 1\n", example.Script, "script is the file contents verbatim")
	assert.Equal(t, filepath.Join(root, "alpha", "script.lua"), example.ScriptPath)

	require.NotNil(t, example.Docs)
	assert.Equal(t, "The first non-heading paragraph spanning two lines.", example.Docs.Summary)

	require.Len(t, example.TestSuites, 1)
	assert.Equal(t, "smoke", example.TestSuites[0].ID)
	assert.Equal(t, "Smoke", example.TestSuites[0].Name)

	_, ok = lib.Get("missing")
	assert.False(t, ok)
}

func TestSnapshotSortedAndIndependent(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "bravo", "Bravo", "return 2\n")
	writeExample(t, root, "alpha", "Alpha", "return 1\n")

	lib := newLibrary(t, root)

	snapshot := lib.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "alpha", snapshot[0].Metadata.ID)
	assert.Equal(t, "bravo", snapshot[1].Metadata.ID)

	// Mutating a snapshot must not leak back into the library.
	snapshot[0].Metadata.Categories[0] = "mutated"
	fresh, _ := lib.Get("alpha")
	assert.Equal(t, "demo", fresh.Metadata.Categories[0])
}

func TestVersionAlwaysIncrements(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")

	lib := newLibrary(t, root)
	require.EqualValues(t, 1, lib.Version())

	// No content change: the version is a generation counter, not a
	// change flag.
	require.NoError(t, lib.Refresh())
	require.NoError(t, lib.Refresh())
	assert.EqualValues(t, 3, lib.Version())
}

func TestDiffAddUpdateRemove(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")
	lib := newLibrary(t, root)

	// Added example with one suite.
	writeExample(t, root, "bravo", "Bravo", "return 2\n")
	writeFile(t, filepath.Join(root, "bravo", "tests", "smoke.lua"),
		"t = { test_ok = function(self) end }\n")
	require.NoError(t, lib.Refresh())

	changes := lib.TakeRecentChanges()
	require.Len(t, changes, 2)
	assert.Equal(t, "bravo", changes[0].ExampleID)
	assert.False(t, changes[0].IsSuiteChange())
	assert.Nil(t, changes[0].Previous)
	require.NotNil(t, changes[0].Current)
	assert.Equal(t, "return 2\n", *changes[0].Current)
	assert.Equal(t, "smoke", changes[1].SuiteID)
	assert.Nil(t, changes[1].Previous)

	// Updated script.
	writeFile(t, filepath.Join(root, "alpha", "script.lua"), "return 10\n")
	require.NoError(t, lib.Refresh())
	changes = lib.TakeRecentChanges()
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].Previous)
	require.NotNil(t, changes[0].Current)
	assert.Equal(t, "return 1\n", *changes[0].Previous)
	assert.Equal(t, "return 10\n", *changes[0].Current)

	// Removed example: mirror image of addition.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "bravo")))
	require.NoError(t, lib.Refresh())
	changes = lib.TakeRecentChanges()
	require.Len(t, changes, 2)
	assert.Nil(t, changes[0].Current)
	require.NotNil(t, changes[0].Previous)
	assert.Equal(t, "smoke", changes[1].SuiteID)
	assert.Nil(t, changes[1].Current)
}

func TestTakeRecentChangesDrains(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")
	lib := newLibrary(t, root)

	writeFile(t, filepath.Join(root, "alpha", "script.lua"), "return 2\n")
	require.NoError(t, lib.Refresh())

	assert.Len(t, lib.TakeRecentChanges(), 1)
	assert.Empty(t, lib.TakeRecentChanges())
}

func TestRevertRestoresScript(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")
	lib := newLibrary(t, root)

	writeFile(t, filepath.Join(root, "alpha", "script.lua"), "return 99\n")
	require.NoError(t, lib.Refresh())
	changes := lib.TakeRecentChanges()
	require.Len(t, changes, 1)

	require.NoError(t, lib.Revert(changes[0]))
	require.NoError(t, lib.Refresh())

	example, ok := lib.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "return 1\n", example.Script)

	// The reload after the revert reported the undo itself; after that
	// the example has no pending changes.
	lib.TakeRecentChanges()
	require.NoError(t, lib.Refresh())
	assert.Empty(t, lib.TakeRecentChanges())
}

func TestRevertOfAdditionDeletesFile(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")
	lib := newLibrary(t, root)

	suitePath := filepath.Join(root, "alpha", "tests", "extra.lua")
	writeFile(t, suitePath, "t = { test_ok = function(self) end }\n")
	require.NoError(t, lib.Refresh())

	changes := lib.TakeRecentChanges()
	require.Len(t, changes, 1)
	require.Nil(t, changes[0].Previous)

	require.NoError(t, lib.Revert(changes[0]))
	_, err := os.Stat(suitePath)
	assert.True(t, os.IsNotExist(err))
}

func TestScanSkipsBrokenExamples(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "good", "Good", "return 1\n")

	// Malformed descriptor.
	writeFile(t, filepath.Join(root, "badmeta", "meta.json"), "{not json")
	writeFile(t, filepath.Join(root, "badmeta", "script.lua"), "return 1\n")

	// Missing script.
	writeFile(t, filepath.Join(root, "noscript", "meta.json"),
		`{"title": "T", "description": "D"}`)

	// Missing required descriptor field.
	writeFile(t, filepath.Join(root, "notitle", "meta.json"), `{"description": "D"}`)
	writeFile(t, filepath.Join(root, "notitle", "script.lua"), "return 1\n")

	lib := newLibrary(t, root)
	snapshot := lib.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "good", snapshot[0].Metadata.ID)
}

func TestYAMLDescriptorFallback(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "yamlish")
	writeFile(t, filepath.Join(dir, "meta.yaml"),
		"title: Yamlish\ndescription: Parsed from yaml\ncategories:\n  - demo\n")
	writeFile(t, filepath.Join(dir, "script.lua"), "return 1\n")

	lib := newLibrary(t, root)
	example, ok := lib.Get("yamlish")
	require.True(t, ok)
	assert.Equal(t, "Yamlish", example.Metadata.Title)
}

func TestBenchmarkEnrichment(t *testing.T) {
	root := t.TempDir()
	writeExample(t, root, "alpha", "Alpha", "return 1\n")

	lookup := func(id string) *library.BenchmarkSummary {
		if id != "alpha" {
			return nil
		}
		return &library.BenchmarkSummary{ExampleID: id, ReportURL: "file:///report"}
	}

	lib := newLibrary(t, root, library.WithBenchmarkLookup(lookup))
	example, ok := lib.Get("alpha")
	require.True(t, ok)
	require.NotNil(t, example.BenchmarkSummary)
	assert.Equal(t, "file:///report", example.BenchmarkSummary.ReportURL)
}

func TestDefaultDirEnvOverride(t *testing.T) {
	t.Setenv(library.EnvExamplesDir, "/tmp/somewhere-else")
	assert.Equal(t, "/tmp/somewhere-else", library.DefaultDir())
}

func TestDescribeAndUnifiedDiff(t *testing.T) {
	previous := "return 1\n"
	current := "return 2\n"
	change := library.ScriptChange{
		ExampleID: "alpha",
		Path:      "/examples/alpha/script.lua",
		Previous:  &previous,
		Current:   &current,
	}

	assert.Equal(t, `example "alpha" script updated (script.lua)`, change.Describe())

	diff, err := change.UnifiedDiff()
	require.NoError(t, err)
	assert.Contains(t, diff, "-return 1")
	assert.Contains(t, diff, "+return 2")
}
