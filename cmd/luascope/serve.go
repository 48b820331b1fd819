package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lualab/luascope"
	"github.com/lualab/luascope/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the explorer over a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")

		explorer, err := newExplorer(cmd, luascope.WithWatch())
		if err != nil {
			return err
		}
		defer explorer.Close()

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: httpapi.NewHandler(explorer, nil),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting luascope server on %s\n", srv.Addr)
			fmt.Printf("Serving examples from: %s\n", explorer.Library().Dir())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "8321", "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
