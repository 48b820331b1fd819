/*
Package luascope hosts an embedded Lua virtual machine for interactive
exploration of script examples.

It loads examples from a directory tree, executes them against a single
locked interpreter with captured output and an optional execution limit,
tracks live edits to the backing files with diff and revert support, and
runs structured test suites declared inside the scripts themselves.

The Explorer facade ties the three core components together:

	explorer, err := luascope.New("examples", luascope.WithWatch())
	if err != nil {
		log.Fatal(err)
	}
	defer explorer.Close()

	out, err := explorer.RunExample("hello-world")

The underlying components live in pkg/host (execution), pkg/library
(repository) and pkg/harness (test runs) and can be used independently.
*/
package luascope
