package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runcrew/ingest/internal/config"
	"github.com/runcrew/ingest/internal/detect"
	"github.com/runcrew/ingest/internal/ocr"
	"github.com/runcrew/ingest/internal/pipeline"
	"github.com/runcrew/ingest/internal/resolve"
	"github.com/runcrew/ingest/internal/server"
	"github.com/runcrew/ingest/internal/store"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for OCR ingestion",
	Long: `Start an HTTP server exposing the OCR ingestion endpoint.

Endpoints:
  POST /ocr-ingest - Resolve, crop, recognize, parse and store one image
  GET  /health     - Health check endpoint
  GET  /metrics    - Prometheus metrics

Examples:
  ingest serve
  ingest serve --port 8080
  ingest serve --host 0.0.0.0 --cors-origin https://app.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		corsOrigin := cfg.Server.CORSOrigin
		if cmd.Flags().Changed("cors-origin") {
			corsOrigin, _ = cmd.Flags().GetString("cors-origin")
		}
		timeout := cfg.Server.TimeoutSec
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		if err := cfg.ValidateService(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pl, db, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		ingestServer := server.NewServer(pl, server.Config{
			Host:            host,
			Port:            port,
			CORSOrigin:      corsOrigin,
			TimeoutSec:      timeout,
			ShutdownTimeout: shutdownTimeout,
		})

		mux := http.NewServeMux()
		ingestServer.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout) * time.Second,
		}

		go func() {
			slog.Info("Starting ingest server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server shutdown completed")
		}
		return nil
	},
}

// buildPipeline wires all pipeline stages from configuration. The returned
// DB must be closed by the caller.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, *store.DB, error) {
	recognizer, err := ocr.New(ocr.Config{
		Provider:        cfg.OCR.Provider,
		ClovaSecretKey:  cfg.OCR.Clova.SecretKey,
		ClovaInvokeURL:  cfg.OCR.Clova.InvokeURL,
		ClovaTemplateID: cfg.OCR.Clova.TemplateID,
	})
	if err != nil {
		return nil, nil, err
	}

	db, err := store.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	signer := resolve.NewClient(cfg.Storage.URL, cfg.Storage.ServiceKey,
		time.Duration(cfg.Storage.SignTTLSec)*time.Second)
	preprocessor := detect.NewPreprocessor(cfg.Detect.Endpoint, cfg.Detect.APIKey, slog.Default())

	pl, err := pipeline.New(pipeline.Deps{
		Signer:        signer,
		Preprocessor:  preprocessor,
		Recognizer:    recognizer,
		Store:         store.NewOcrResultRepo(db),
		DefaultBucket: cfg.Storage.Bucket,
		Logger:        slog.Default(),
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return pl, db, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origin")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
}
