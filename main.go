package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/skillarena/backend/api"
	"github.com/skillarena/backend/config"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/metrics"
	"github.com/skillarena/backend/models"
	"github.com/skillarena/backend/services"
	"github.com/skillarena/backend/workers"
)

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Closing server")
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func run(ctx context.Context, cfg config.Config) error {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return err
	}
	log.Info().Str("dbType", cfg.Database.Type).Int("replicas", len(cfg.Database.ReplicaDSNs)).Msg("Connecting to database")
	db, err := database.Open(dsn, cfg.Database.ReplicaDSNs)
	if err != nil {
		return err
	}

	// If generating models, run generation and exit
	if cfg.Database.GenerateOnly {
		fmt.Println("Generating models and query helpers...")
		return models.GenerateModels(db)
	}

	// If generating column mismatch report, run report and exit
	if cfg.Database.ReportOnly {
		fmt.Println("Generating column mismatch report...")
		models.GenerateColumnMismatchReport(db)
		return nil
	}

	currentDB := database.New(db)
	if err := currentDB.Migrate(); err != nil {
		return err
	}
	metrics.Register()

	payments := services.NewStripePayments(cfg.Payments.StripeSecretKey, nil)
	mailer := services.NewMailer(cfg.Email)
	uploads, err := services.NewImageUploads(ctx, cfg.AWSRegion, cfg.Images)
	if err != nil {
		return err
	}
	search, err := services.NewContestSearch(cfg.Search.ElasticURL, cfg.Search.Index)
	if err != nil {
		return err
	}
	cache, err := services.NewLeaderboardCache(ctx, cfg.Cache.RedisURL, cfg.Cache.LeaderboardTTL)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	managerOpts := []lifecycle.Option{
		lifecycle.WithMaxAttempts(cfg.Database.MaxRetries),
		lifecycle.WithCurrency(cfg.Payments.Currency),
		lifecycle.WithRetryObserver(func(op string, attempt int) {
			metrics.WriteRetries.WithLabelValues(op).Inc()
		}),
	}
	if payments != nil {
		managerOpts = append(managerOpts, lifecycle.WithPaymentProvider(payments))
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, paid contests cannot be joined")
	}
	manager := lifecycle.NewManager(currentDB.ContestStore(), managerOpts...)

	workerOpts := []workers.Option{
		workers.WithInterval(cfg.Workers.OutboxPollInterval),
		workers.WithBatchSize(cfg.Workers.OutboxBatchSize),
	}
	if search != nil {
		if err := seedSearch(ctx, search, manager); err != nil {
			log.Warn().Err(err).Msg("Contest search index not ready, listing falls back to database search")
		}
		workerOpts = append(workerOpts, workers.WithIndexer(search))
	}
	if cache != nil {
		workerOpts = append(workerOpts, workers.WithCache(cache))
	}
	if mailer != nil {
		workerOpts = append(workerOpts, workers.WithNotifier(mailer))
	}
	worker := workers.NewOutboxWorker(currentDB.OutboxRepo(), currentDB.ContestStore(), currentDB.UserRepo(), workerOpts...)

	server, err := api.NewServer(cfg, currentDB, manager,
		api.WithSearch(search),
		api.WithLeaderboardCache(cache),
		api.WithImageUploads(uploads),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		errChannel := make(chan error, 1)
		go server.Start(errChannel)

		select {
		case err := <-errChannel:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-gctx.Done():
			server.ShutdownGracefully(30 * time.Second)
			return nil
		}
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	return g.Wait()
}

// seedSearch creates the contest index and loads every contest into it.
func seedSearch(ctx context.Context, search *services.ContestSearch, manager *lifecycle.Manager) error {
	if err := search.EnsureIndex(ctx); err != nil {
		return err
	}
	contests, err := manager.Snapshot(ctx)
	if err != nil {
		return err
	}
	return search.Reindex(ctx, contests)
}
