package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/sla"
	"github.com/spec-kit/servicedesk/internal/ticketnumber"
	"github.com/spec-kit/servicedesk/internal/worker"
)

// application is the fully wired service shared by every command.
type application struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	postgres   *persistence.Postgres
	redis      *persistence.Redis
	dispatcher events.Dispatcher
	forwarder  *events.KafkaForwarder

	users      repository.UserRepository
	tickets    *service.TicketService
	categories *service.CategoryService
	auth       *service.AuthService
	monitor    *sla.Monitor
	reporter   *sla.Reporter
	reports    *persistence.ReportStore
}

func bootstrap(ctx context.Context, opts *RootOptions) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), opts.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	app := &application{
		cfg:        cfg,
		logger:     logger,
		metrics:    observability.NewMetrics(),
		postgres:   pg,
		redis:      redis,
		dispatcher: events.NewInMemoryDispatcher(logger),
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	app.users = repository.NewUserRepository(pool)

	calc := sla.NewCalculator(sla.Thresholds{
		FirstResponse: cfg.SLA.FirstResponseRisk(),
		Resolution:    cfg.SLA.ResolutionRisk(),
	}, nil)
	sink := events.NewDispatcherSink(app.dispatcher)

	app.tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:        ticketRepo,
		CommentRepo:       commentRepo,
		CategoryRepo:      categoryRepo,
		UserRepo:          app.users,
		Calculator:        calc,
		Numbers:           ticketnumber.NewGenerator(),
		Sink:              sink,
		Logger:            logger.Named("tickets"),
		MaxNumberAttempts: cfg.SLA.TicketNumberMaxAttempts,
	})
	app.categories = service.NewCategoryService(categoryRepo)
	app.auth = service.NewAuthService(cfg.Auth, app.users)

	app.monitor = sla.NewMonitor(sla.MonitorDependencies{
		Store:      ticketRepo,
		Calculator: calc,
		Sink:       sink,
		Observer:   app.metrics,
		Logger:     logger.Named("sla_monitor"),
	})
	app.reports = persistence.NewReportStore(redis, cfg.SLA.ReportTTL())
	app.reporter = sla.NewReporter(ticketRepo, app.reports, logger.Named("sla_report"), nil)

	if cfg.Kafka.Enabled() {
		app.forwarder = events.NewKafkaForwarder(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, logger.Named("kafka"))
	}
	worker.StartEventSubscribers(app.dispatcher, worker.Subscribers{
		Notifications: service.NewNotificationService(app.dispatcher, logger.Named("notifications"), cfg.Notification, nil),
		Audit:         service.NewAuditTrail(historyRepo, logger.Named("audit")),
		Forwarder:     app.forwarder,
	})

	return app, nil
}

func (a *application) Close() {
	if a.forwarder != nil {
		if err := a.forwarder.Close(); err != nil {
			a.logger.Warn("kafka forwarder close failed", zap.Error(err))
		}
	}
	a.redis.Close()
	a.postgres.Close()
	_ = a.logger.Sync()
}
