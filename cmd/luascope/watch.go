package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the example directory and report changes",
	Long: `Watches the example directory tree and prints every detected script or
test-suite change until interrupted. With --diff, prints unified diffs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		showDiff, _ := cmd.Flags().GetBool("diff")
		interval, _ := cmd.Flags().GetDuration("poll")

		explorer, err := newExplorer(cmd, luascope.WithWatch())
		if err != nil {
			return err
		}
		defer explorer.Close()

		fmt.Printf("Watching %s (version %d). Ctrl-C to stop.\n",
			explorer.Library().Dir(), explorer.LibraryVersion())

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for _, change := range explorer.TakeRecentChanges() {
					fmt.Println(change.Describe())
					if showDiff {
						if diff, err := change.UnifiedDiff(); err == nil && diff != "" {
							fmt.Print(diff)
						}
					}
				}
			case <-shutdown:
				fmt.Println("\nBye!")
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().Bool("diff", false, "Print unified diffs for each change")
	watchCmd.Flags().Duration("poll", 500*time.Millisecond, "How often to drain pending changes")
	rootCmd.AddCommand(watchCmd)
}
