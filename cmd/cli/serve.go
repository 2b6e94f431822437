package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"localdrive/internal/events"
	"localdrive/internal/handler"
	"localdrive/internal/preview"
	"localdrive/internal/service"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 30 * time.Second
)

func NewServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub()
	previewService := preview.NewService()

	a, err := newApp(ctx, opts, service.Notifiers{hub, previewService}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	router := handler.NewRouter(handler.Handlers{
		Items:   handler.NewItemHandler(a.items, a.hierarchy, a.trash),
		Trash:   handler.NewTrashHandler(a.trash),
		Shares:  handler.NewShareHandler(a.shares),
		Quota:   handler.NewStorageQuotaHandler(a.quota),
		Events:  hub,
		Preview: preview.NewHandler(previewService, a.items).GetPreview,
	})

	grpcServer := grpc.NewServer()
	handler.RegisterDriveServiceServer(grpcServer, handler.NewDriveHandler(a.shares, a.quota, a.hierarchy))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Printf("Starting gRPC server on port %s", a.cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()

	go func() {
		log.Printf("Starting HTTP server on port %s", a.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	go runTrashCleanup(ctx, a.trash, a.cfg.Storage.TrashRetention)

	select {
	case <-ctx.Done():
	case err = <-errCh:
		log.Error().Err(err).Msg("server stopped")
	}

	log.Info().Msg("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()

	log.Info().Msg("Server exited properly")
	return err
}

// runTrashCleanup раз в час удаляет из корзины элементы старше retention.
// Нулевой retention отключает очистку.
func runTrashCleanup(ctx context.Context, trash *service.TrashService, retention time.Duration) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := trash.AutoCleanup(ctx, retention)
			if err != nil {
				log.Printf("Error during trash auto cleanup: %v", err)
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Msg("trash auto cleanup finished")
			}
		case <-ctx.Done():
			return
		}
	}
}
