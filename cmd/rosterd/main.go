package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/rosterforge/rosterd/adapter/cli"
	"github.com/rosterforge/rosterd/adapter/cli/collab"
	"github.com/rosterforge/rosterd/adapter/cli/roster"
	collabApplication "github.com/rosterforge/rosterd/internal/collab/application"
	collabDomain "github.com/rosterforge/rosterd/internal/collab/domain"
	"github.com/rosterforge/rosterd/internal/collab/infrastructure/memlock"
	collabPersistence "github.com/rosterforge/rosterd/internal/collab/infrastructure/persistence"
	"github.com/rosterforge/rosterd/internal/collab/infrastructure/redislock"
	"github.com/rosterforge/rosterd/internal/roster/application/commands"
	"github.com/rosterforge/rosterd/internal/roster/application/queries"
	"github.com/rosterforge/rosterd/internal/roster/application/services"
	rosterDomain "github.com/rosterforge/rosterd/internal/roster/domain"
	rosterPersistence "github.com/rosterforge/rosterd/internal/roster/infrastructure/persistence"
	"github.com/rosterforge/rosterd/internal/roster/infrastructure/scheduled"
	sharedApplication "github.com/rosterforge/rosterd/internal/shared/application"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/eventbus"
	"github.com/rosterforge/rosterd/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/rosterforge/rosterd/internal/shared/infrastructure/persistence"
	"github.com/rosterforge/rosterd/pkg/config"
	"github.com/rosterforge/rosterd/pkg/observability"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// resources holds everything main needs to close cleanly on shutdown.
type resources struct {
	sqliteDB  *sql.DB
	pgPool    *pgxpool.Pool
	redis     *redis.Client
	publisher eventbus.Publisher
}

func (r *resources) Close() {
	if r.sqliteDB != nil {
		r.sqliteDB.Close()
	}
	if r.pgPool != nil {
		r.pgPool.Close()
	}
	if r.redis != nil {
		r.redis.Close()
	}
	if r.publisher != nil {
		r.publisher.Close()
	}
}

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cli.SetLogger(logger)

	res := &resources{}
	defer res.Close()

	scheduleRepo, uow, auditStore, err := wireScheduleStore(ctx, cfg, logger, res)
	if err != nil {
		logger.Error("failed to wire schedule store", "error", err)
		os.Exit(1)
	}

	lockStore := wireLockStore(ctx, cfg, logger, res)
	res.publisher = wirePublisher(cfg, logger)

	engine := services.NewEngine()
	generateHandler := commands.NewGenerateScheduleHandler(scheduleRepo, engine, res.publisher, uow, logger)
	statisticsHandler := queries.NewGetStatisticsHandler(scheduleRepo)
	swapsHandler := queries.NewFindSwapSuggestionsHandler(scheduleRepo)

	core := collabApplication.NewCore(lockStore, auditStore, collabApplication.Config{
		LockTimeout:    cfg.LockTimeout,
		SessionTimeout: cfg.SessionTimeout,
		ConflictTTL:    cfg.ConflictTTL,
	}, logger)

	cleanupTicker := collabApplication.NewCleanupTicker(core, collabApplication.CleanupTickerConfig{
		Interval:       cfg.CleanupInterval,
		SessionTimeout: cfg.SessionTimeout,
		ConflictTTL:    cfg.ConflictTTL,
	}, logger)
	cleanupTicker.Start(ctx)
	defer cleanupTicker.Stop()

	rebalanceJobFactory := func(jobCfg scheduled.RebalanceReportJobConfig) *scheduled.RebalanceReportJob {
		return scheduled.NewRebalanceReportJob(jobCfg, scheduleRepo, res.publisher, logger)
	}

	cli.SetApp(cli.NewApp(
		generateHandler,
		statisticsHandler,
		swapsHandler,
		scheduleRepo,
		engine,
		core,
		cleanupTicker,
		rebalanceJobFactory,
		operatorID(),
	))

	cli.AddCommand(roster.Cmd)
	cli.AddCommand(collab.Cmd)
	cli.Execute()
}

// wireScheduleStore opens the configured backup store (SQLite for local
// mode, PostgreSQL for a shared deployment), runs its migrations, and
// returns the roster's schedule repository, a matching unit of work, and
// the collaboration core's durable audit store backed by the same database.
func wireScheduleStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, res *resources) (
	rosterDomain.ScheduleRepository,
	sharedApplication.UnitOfWork,
	collabDomain.AuditStore,
	error,
) {
	switch {
	case cfg.IsPostgres():
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		res.pgPool = pool
		logger.Info("connected to postgres backup store")
		return rosterPersistence.NewPostgresScheduleRepository(pool),
			sharedPersistence.NewPostgresUnitOfWork(pool),
			collabPersistence.NewPostgresAuditStore(pool),
			nil

	default:
		path := cfg.SQLitePath
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := migrations.RunSQLiteMigrations(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("run sqlite migrations: %w", err)
		}
		res.sqliteDB = db
		logger.Info("opened sqlite backup store", "path", path)
		return rosterPersistence.NewSQLiteScheduleRepository(db),
			sharedPersistence.NewSQLiteUnitOfWork(db),
			collabPersistence.NewSQLiteAuditStore(db),
			nil
	}
}

// wireLockStore selects the distributed Redis-backed lock store when
// enabled, falling back to the in-process store for single-operator mode.
func wireLockStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, res *resources) collabDomain.LockStore {
	if !cfg.RedisEnabled {
		return memlock.New()
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("invalid redis url, falling back to in-process lock store", "error", err)
		return memlock.New()
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, falling back to in-process lock store", "error", err)
		client.Close()
		return memlock.New()
	}
	res.redis = client
	logger.Info("connected to redis lock backend")
	return redislock.New(client, redislock.DefaultConfig())
}

func wirePublisher(cfg *config.Config, logger *slog.Logger) eventbus.Publisher {
	if !cfg.RabbitMQEnabled {
		return eventbus.NewInProcessEventBus(logger)
	}
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("rabbitmq not reachable, falling back to in-process event bus", "error", err)
		return eventbus.NewInProcessEventBus(logger)
	}
	return publisher
}

func operatorID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
