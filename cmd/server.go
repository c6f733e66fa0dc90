package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taharajati/habit-tracker/internal/config"
	"github.com/taharajati/habit-tracker/internal/logger"
	"github.com/taharajati/habit-tracker/internal/server"
	"github.com/taharajati/habit-tracker/internal/storage"
	"github.com/taharajati/habit-tracker/internal/storage/bolt"
	"github.com/taharajati/habit-tracker/internal/storage/memory"
	"github.com/taharajati/habit-tracker/internal/storage/sqlstore"
)

const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// openStore opens the backend named by sc.Driver. SQL backends are migrated
// on open.
func openStore(ctx context.Context, sc config.StorageConfig) (storage.Store, error) {
	switch sc.Driver {
	case "bolt":
		s, err := bolt.Open(sc.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		dsn := sc.DSN
		if sc.Driver == sqlstore.DriverSQLite {
			dsn = sc.Path
		}
		s, err := sqlstore.Open(ctx, sc.Driver, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

func startServer(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	srv, err := server.New(cfg, st)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.ListenAddr, "storage", cfg.Storage.Driver, "auth_enabled", cfg.AuthEnabled, "timezone", cfg.Timezone)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
