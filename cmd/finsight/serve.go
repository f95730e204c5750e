package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finsight/internal/httpapi"
	"finsight/internal/storage"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	eng, sessions, err := buildEngine()
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	if err := sessions.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate session store: %w", err)
	}

	go purgeLoop(ctx, sessions, viper.GetInt("sessions.max_idle_seconds"))

	metrics := httpapi.NewMetrics(viper.GetString("server.metrics_namespace"))
	server := &http.Server{
		Addr:              viper.GetString("server.addr"),
		Handler:           httpapi.New(eng, metrics).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", server.Addr)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// purgeLoop periodically discards abandoned conversation contexts.
func purgeLoop(ctx context.Context, sessions *storage.SQLiteStorage, maxIdleSeconds int) {
	if maxIdleSeconds <= 0 {
		return
	}
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := sessions.PurgeStale(ctx, maxIdleSeconds)
			if err != nil {
				slog.Warn("Failed to purge stale sessions", "error", err)
				continue
			}
			if purged > 0 {
				slog.Info("Purged stale sessions", "count", purged)
			}
		}
	}
}
