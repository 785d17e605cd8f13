package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/perfinapp/ledger_engine/internal/core/domain"
	portsrepo "github.com/perfinapp/ledger_engine/internal/core/ports/repositories"
	portssvc "github.com/perfinapp/ledger_engine/internal/core/ports/services"
	"github.com/perfinapp/ledger_engine/internal/core/services"
	"github.com/perfinapp/ledger_engine/internal/handlers"
	"github.com/perfinapp/ledger_engine/internal/ingestion"
	"github.com/perfinapp/ledger_engine/internal/middleware"
	"github.com/perfinapp/ledger_engine/internal/platform/config"
	"github.com/perfinapp/ledger_engine/internal/platform/database"
	"github.com/perfinapp/ledger_engine/internal/repositories/database/pgsql"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	runMigrations(logger, cfg)

	// Wire repositories and services
	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos)

	// Background ingestion queue (optional, see INGEST_ASYNC)
	var enqueueEvent handlers.EventEnqueuer
	var riverClient *river.Client[pgx.Tx]
	if cfg.IngestAsync {
		riverClient, err = setupRiverClient(ctx, logger, dbPool, serviceContainer)
		if err != nil {
			logger.Error("Failed to set up background worker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		enqueueEvent = func(ctx context.Context, event domain.FinancialEvent) error {
			_, err := riverClient.Insert(ctx, ingestion.FinancialEventArgs{Event: event}, nil)
			return err
		}
		defer func() {
			if err := riverClient.Stop(ctx); err != nil {
				logger.Error("Error stopping background worker", slog.String("error", err.Error()))
			}
		}()
	}

	// Periodically prune idempotency records outside the retention window
	go pruneIdempotencyRecords(ctx, logger, repos.JournalRepo, cfg.IdempotencyRetention)

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if !cfg.IsProduction {
		r.Use(cors.Default())
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, enqueueEvent)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending schema migrations from the migrations
// directory. A temporary database/sql connection is used because the migrate
// driver does not speak pgxpool.
func runMigrations(logger *slog.Logger, cfg *config.Config) {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		os.Exit(1)
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		os.Exit(1)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
}

// setupRiverClient applies the queue's own migrations, registers the event
// worker and starts the client.
func setupRiverClient(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool, serviceContainer *portssvc.ServiceContainer) (*river.Client[pgx.Tx], error) {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, err
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, err
	}
	logger.Info("Queue migrations applied")

	workers := river.NewWorkers()
	river.AddWorker(workers, ingestion.NewEventWorker(serviceContainer.Ingestion, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, err
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, err
	}
	logger.Info("Background event worker started")
	return riverClient, nil
}

// pruneIdempotencyRecords removes applied-event records older than the
// retention window once a day. Pruning never touches ledger state.
func pruneIdempotencyRecords(ctx context.Context, logger *slog.Logger, journalRepo portsrepo.JournalRepositoryFacade, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			removed, err := journalRepo.PruneIdempotencyRecords(ctx, cutoff)
			if err != nil {
				logger.Error("Failed to prune idempotency records", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				logger.Info("Pruned idempotency records", slog.Int64("removed", removed), slog.Time("cutoff", cutoff))
			}
		}
	}
}
