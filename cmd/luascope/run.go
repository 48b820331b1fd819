package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope"
)

var runCmd = &cobra.Command{
	Use:   "run <example-id>",
	Short: "Execute an example and print its captured output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		inputFlags, _ := cmd.Flags().GetStringSlice("input")

		explorer, err := newExplorer(cmd, luascope.WithExecutionLimit(timeout))
		if err != nil {
			return err
		}
		defer explorer.Close()

		inputs := map[string]string{}
		for _, pair := range inputFlags {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				return fmt.Errorf("invalid --input %q, expected name=value", pair)
			}
			inputs[key] = value
		}

		var out, errOut string
		result, runErr := explorer.RunExampleWith(args[0], inputs)
		if result != nil {
			out, errOut = result.Stdout, result.Stderr
		}
		if out != "" {
			fmt.Print(out)
		}
		if errOut != "" {
			fmt.Print(errOut)
		}
		if runErr != nil {
			return runErr
		}

		if result.ReturnValue != nil {
			fmt.Printf("=> %s\n", *result.ReturnValue)
		}
		fmt.Printf("(%s)\n", result.Duration.Round(time.Microsecond))
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("timeout", 0, "Wall-clock execution limit (0 for none)")
	runCmd.Flags().StringSlice("input", nil, "Input value as name=value (repeatable)")
	rootCmd.AddCommand(runCmd)
}
