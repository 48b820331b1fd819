package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope/pkg/harness"
)

var testCmd = &cobra.Command{
	Use:   "test <example-id> [suite-id]",
	Short: "Run an example's test suites",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		explorer, err := newExplorer(cmd)
		if err != nil {
			return err
		}
		defer explorer.Close()

		var results []*harness.SuiteResult
		var runErr error
		if len(args) == 2 {
			result, err := explorer.RunSuite(args[0], args[1])
			if err != nil {
				return err
			}
			results = append(results, result)
		} else {
			results, runErr = explorer.RunAllSuites(args[0])
		}

		anyFailed := false
		for _, result := range results {
			printSuiteResult(result)
			if !result.Passed {
				anyFailed = true
			}
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Some suites failed to run: %v\n", runErr)
			anyFailed = true
		}
		if anyFailed {
			return errors.New("test failures")
		}
		return nil
	},
}

func printSuiteResult(result *harness.SuiteResult) {
	passed := 0
	for _, c := range result.Cases {
		if c.Status == harness.Passed {
			passed++
		}
	}
	fmt.Printf("suite %q: %d/%d cases passed (%s)\n",
		result.SuiteName, passed, len(result.Cases), result.TotalDuration.Round(time.Microsecond))

	for _, c := range result.Cases {
		marker := "ok"
		if c.Status == harness.Failed {
			marker = "FAIL"
		}
		fmt.Printf("  %-4s %s (%s)\n", marker, c.Name, c.Duration.Round(time.Microsecond))
		if c.Error != "" {
			fmt.Printf("       %s\n", c.Error)
		}
	}
}

func init() {
	rootCmd.AddCommand(testCmd)
}
