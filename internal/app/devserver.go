package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"ragchat/client/internal/devserver"
)

func devserverCMD(rt *runtime) *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory chat backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = rt.cfg.DevserverAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveDevserver(ctx, addr, origins)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":5050", "listen address (default DEVSERVER_ADDR)")
	cmd.Flags().StringSliceVar(&origins, "origins", []string{"http://localhost:3000"}, "allowed CORS origins")
	return cmd
}

func serveDevserver(ctx context.Context, addr string, origins []string) error {
	store := devserver.NewStore(bcrypt.DefaultCost)
	router := devserver.NewRouter(devserver.NewHandler(store), origins)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Uploads may take longer than any fixed limit.
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting development server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutdown signal received, stopping development server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
