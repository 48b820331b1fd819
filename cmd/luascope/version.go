package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of luascope",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("luascope version %s\n", luascope.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
