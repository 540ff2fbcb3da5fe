// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/guideline-engine/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chart and evidence parsers over HTTP",
	Long: `Serve starts an HTTP server exposing the parsers:

  GET  /health
  POST /v1/charts?format=A|B|C&citations=1|2     body: pdftohtml -xml output
  POST /v1/evidence?version=1..4                 body: pdftohtml -xml output

Threshold overrides are accepted as query parameters named like the manifest
keys (row_start_max, cell_tolerance, ...). With --with-store the server also
answers GET /v1/recommendations and GET /v1/documents from the results store.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Bool("with-store", false, "serve search endpoints from the results store")
	serveCmd.Flags().Int64("max-body", api.DefaultMaxBodyBytes, "maximum request body in bytes")

	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg := api.Config{}
	cfg.MaxBodyBytes, _ = cmd.Flags().GetInt64("max-body")
	if withStore, _ := cmd.Flags().GetBool("with-store"); withStore {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		cfg.Store = st
	}

	httpServer := &http.Server{
		Addr:              viper.GetString("serve.addr"),
		Handler:           api.NewServer(cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
