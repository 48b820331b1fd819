package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <example-id>",
	Short: "Show an example's metadata, documentation and script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		explorer, err := newExplorer(cmd)
		if err != nil {
			return err
		}
		defer explorer.Close()

		example, ok := explorer.Example(args[0])
		if !ok {
			return fmt.Errorf("unknown example %q", args[0])
		}

		fmt.Printf("%s — %s\n\n", example.Metadata.Title, example.Metadata.Description)
		if example.Metadata.Note != "" {
			fmt.Printf("Note: %s\n\n", example.Metadata.Note)
		}

		if example.Docs != nil {
			if raw, err := os.ReadFile(example.Docs.Path); err == nil {
				renderMarkdown(string(raw))
			}
		}

		fmt.Println("--- script ---")
		fmt.Println(example.Script)
		return nil
	},
}

// renderMarkdown prints the long-form docs through glamour, falling back
// to the raw text when the renderer cannot be constructed.
func renderMarkdown(markdown string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		fmt.Println(markdown)
		return
	}
	rendered, err := r.Render(markdown)
	if err != nil {
		fmt.Println(markdown)
		return
	}
	fmt.Print(rendered)
}

func init() {
	rootCmd.AddCommand(showCmd)
}
