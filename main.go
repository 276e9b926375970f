package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	fiberredis "github.com/gofiber/storage/redis/v3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"katalog/config"
	"katalog/gql"
	"katalog/handlers"
	"katalog/logger"
	"katalog/mail"
	"katalog/metrics"
	"katalog/models"
	"katalog/service"
	"katalog/store"
	"katalog/store/postgres"
)

func main() {
	configPath := flag.String("config", os.Getenv("KATALOG_CONFIG"), "path of the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Konfiguration konnte nicht geladen werden: %v\n", err)
	}

	build := logger.New().Level(cfg.Log.Level).Pretty(cfg.Log.Pretty)
	if cfg.Log.File != "" {
		build = build.FromPath(cfg.Log.File)
	}
	logData, err := build.Make()
	if err != nil {
		log.Fatalf("Logger konnte nicht erstellt werden: %v\n", err)
	}
	defer logData.Close()
	lg := logData.Logger

	if err := run(cfg, lg); err != nil {
		lg.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config, lg zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	notifier := mail.New(mail.Config(cfg.Mail), mail.WithObserver(m.MailOutcome))
	health := handlers.NewHealthHandler(lg)

	films, songs, closeDB, err := buildServices(ctx, cfg.DB, notifier, lg, health)
	if err != nil {
		return err
	}
	defer closeDB()

	storage, closeStorage, err := buildStorage(ctx, cfg.Redis, lg, health)
	if err != nil {
		return err
	}
	defer closeStorage()
	sessions := session.New(session.Config{
		Storage:    storage,
		Expiration: cfg.Auth.SessionTTL,
	})

	schema, err := gql.NewResolver(songs, lg).Schema()
	if err != nil {
		return fmt.Errorf("graphql schema: %w", err)
	}

	app := newApp(deps{
		cfg:      cfg,
		log:      lg,
		films:    films,
		songs:    songs,
		sessions: sessions,
		storage:  storage,
		schema:   schema,
		metrics:  m,
		health:   health,
	})

	errc := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", cfg.Server.Addr).Str("db", cfg.DB.Driver).Msg("listening")
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	lg.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
}

// buildServices selects the persistence named by the configuration.
func buildServices(ctx context.Context, cfg config.DB, notifier mail.Notifier, lg zerolog.Logger, health *handlers.HealthHandler) (service.Service[models.Film], service.Service[models.Song], func(), error) {
	var (
		filmStore store.Store[models.Film]
		songStore store.Store[models.Song]
		closeDB   = func() {}
	)
	switch cfg.Driver {
	case "mock":
		lg.Warn().Msg("mock services: nothing is persisted")
		return service.NewFixtureService(models.FilmFixtures, lg), service.NewFixtureService(models.SongFixtures, lg), closeDB, nil
	case "memory":
		filmStore = store.NewMemory[models.Film](store.WithUniqueFields("titel", "isan"))
		songStore = store.NewMemory[models.Song](store.WithUniqueFields("titel"))
	case "postgres":
		if err := postgres.Migrate(ctx, cfg.DSN); err != nil {
			return nil, nil, nil, err
		}
		pool, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		closeDB = pool.Close
		filmStore = postgres.NewCollection[models.Film](pool, service.FilmKind.Collection)
		songStore = postgres.NewCollection[models.Song](pool, service.SongKind.Collection)
	default:
		return nil, nil, nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
	health.Add("db", filmStore.Ping)

	if cfg.Populate {
		if err := service.Populate(ctx, filmStore, models.FilmFixtures); err != nil {
			closeDB()
			return nil, nil, nil, err
		}
		if err := service.Populate(ctx, songStore, models.SongFixtures); err != nil {
			closeDB()
			return nil, nil, nil, err
		}
		lg.Info().Int("filme", len(models.FilmFixtures)).Int("songs", len(models.SongFixtures)).Msg("test data loaded")
	}

	films := service.NewRecordService(service.FilmKind, filmStore, notifier, lg)
	songs := service.NewRecordService(service.SongKind, songStore, notifier, lg)
	return films, songs, closeDB, nil
}

// buildStorage returns the Redis storage for sessions and rate limits, or
// nil to keep both in memory. The returned func closes both Redis clients.
func buildStorage(ctx context.Context, cfg config.Redis, lg zerolog.Logger, health *handlers.HealthHandler) (fiber.Storage, func(), error) {
	if cfg.Addr == "" {
		lg.Info().Msg("no redis configured, sessions are kept in memory")
		return nil, func() {}, nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, nil, fmt.Errorf("redis port: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	health.Add("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	storage := fiberredis.New(fiberredis.Config{
		Host:     host,
		Port:     port,
		Password: cfg.Password,
		Database: cfg.DB,
	})
	closeStorage := func() {
		if err := storage.Close(); err != nil {
			lg.Warn().Err(err).Msg("closing redis storage")
		}
		if err := rdb.Close(); err != nil {
			lg.Warn().Err(err).Msg("closing redis client")
		}
	}
	return storage, closeStorage, nil
}
