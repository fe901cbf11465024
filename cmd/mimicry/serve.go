package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP model API",
	Long: `Serve the model database over HTTP.

Routes:
  GET    /api/models                   - list models
  POST   /api/models                   - train a new model from raw text
  GET    /api/models/{name}            - model metadata
  DELETE /api/models/{name}            - delete a model
  POST   /api/models/{name}/train      - merge more text into a model
  POST   /api/models/{name}/generate   - generate chains
  POST   /api/models/{name}/prune      - remove rare transitions
  GET    /api/models/{name}/export     - download a JSON export
  POST   /api/import                   - upload a JSON export

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = config.ServeAddr
		}

		db, s, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()

		api := NewModelAPI(s, logger, config)
		mux := http.NewServeMux()
		api.RegisterRoutes(mux)

		server := &http.Server{Addr: addr, Handler: mux}

		go func() {
			logger.Info("Starting model API server", "address", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Model API server failed", "error", err)
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("OS signal received, initiating shutdown.")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
			return err
		}
		logger.Info("HTTP server stopped.")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config serve_addr)")
}
