package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope"
	"github.com/lualab/luascope/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "luascope",
	Short: "luascope explores Lua script examples",
	Long: `luascope loads script examples from a directory tree, runs them on an
embedded Lua interpreter with captured output, tracks live edits, and runs
test suites declared inside the scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Commands report failures through RunE so their deferred
// cleanup (watcher shutdown in particular) runs before the process exits.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", "", "Directory containing the examples (default: $LUASCOPE_EXAMPLES_DIR or ./examples)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// newExplorer builds an Explorer from the common flags.
func newExplorer(cmd *cobra.Command, extra ...luascope.Option) (*luascope.Explorer, error) {
	dir, _ := cmd.Flags().GetString("dir")
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	opts := append([]luascope.Option{luascope.WithLogger(logging.New(level))}, extra...)
	return luascope.New(dir, opts...)
}
