package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the SLA scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()
	logger := app.logger

	server := fiber.New(fiber.Config{
		AppName:               app.cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, logger, app.metrics, app.cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(app.cfg.App.Name, app.cfg.App.Version, map[string]handlers.Pinger{
			"postgres": app.postgres,
			"redis":    app.redis,
		}, app.metrics),
		Auth:           handlers.NewAuthHandler(app.auth),
		Tickets:        handlers.NewTicketsHandler(app.tickets),
		Categories:     handlers.NewCategoriesHandler(app.categories),
		SLA:            handlers.NewSLAHandler(app.monitor, app.reports),
		AuthMiddleware: auth.NewAuthMiddleware(app.auth.TokenManager(), app.users),
	})

	var scheduler *worker.SLAScheduler
	if app.cfg.SLA.MonitorEnabled {
		scheduler, err = worker.NewSLAScheduler(app.cfg.SLA, app.monitor, app.reporter, logger.Named("scheduler"))
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	go func() {
		addr := app.cfg.App.Addr()
		logger.Info("starting http server", zap.String("addr", addr))
		if err := server.Listen(addr); err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
