package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		explorer, err := newExplorer(cmd)
		if err != nil {
			return err
		}
		defer explorer.Close()

		examples := explorer.Examples()
		if len(examples) == 0 {
			fmt.Println("No examples found.")
			return nil
		}

		for _, e := range examples {
			line := fmt.Sprintf("%-24s %s", e.Metadata.ID, e.Metadata.Title)
			if len(e.Metadata.Categories) > 0 {
				line += fmt.Sprintf("  [%s]", strings.Join(e.Metadata.Categories, ", "))
			}
			if len(e.TestSuites) > 0 {
				line += fmt.Sprintf("  (%d suites)", len(e.TestSuites))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
