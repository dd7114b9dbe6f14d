package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/internal/crawler"
	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
	"sjsage522/vehiclecrawler/services/cache"
	"sjsage522/vehiclecrawler/services/publisher"
	"sjsage522/vehiclecrawler/services/storage"
	"sjsage522/vehiclecrawler/services/worker"

	"github.com/joho/godotenv"
)

// errInterrupted is returned when a signal aborts the run
var errInterrupted = errors.New("run interrupted by signal")

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := run(); err != nil {
		reportFailure(logger.Default, err)
		os.Exit(1)
	}
}

// reportFailure logs why the run ended without output. Fatal errors are
// configuration or persistence problems that a rerun will not fix.
func reportFailure(log *logger.Logger, err error) {
	if crawlerrors.IsFatal(err) {
		log.Error().Err(err).Bool("fatal", true).Msg("Run failed, fix the configuration or output path before retrying")
		return
	}
	log.Error().Err(err).Bool("fatal", false).Msg("Run failed")
}

func run() error {
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	criteria, err := config.LoadCriteria(cfg.CriteriaPath)
	if err != nil {
		log.Warn().Err(err).Msg("Using default search criteria")
	}
	if err := criteria.Validate(); err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("fetch_mode", cfg.FetchMode).
		Str("vtype", criteria.VehicleType).
		Str("make", criteria.Make).
		Str("model", criteria.Model).
		Int("pages", criteria.Pages).
		Msg("Starting vehicle crawler")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	progress := crawler.MultiSink{crawler.NewLogSink(logger.ForPipeline())}
	if services.Publisher != nil {
		progress = append(progress, crawler.NewPublisherSink(services.Publisher, logger.ForPublisher()))
	}

	deps := worker.Dependencies{
		Pipeline:    crawler.NewPipeline(cfg, progress, logger.ForPipeline()),
		OpenSession: crawler.NewSessionOpener(cfg, services.Cache, logger.ForFetcher()),
		Writer:      storage.NewJSONWriter(cfg.OutputPath),
		Progress:    progress,
	}
	if services.Archive != nil {
		deps.Archive = services.Archive
	}
	if services.Publisher != nil {
		deps.Publisher = services.Publisher
	}

	w := worker.NewWorker(ctx, cfg, deps, logger.ForWorker())
	done := w.Start(criteria)

	// Wait for shutdown signal or the run to finish
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		// Wait for the session to close before exiting
		<-done
		return errInterrupted
	case result := <-done:
		return result.Err
	}
}

// Services holds the optional services of a run
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Archive   *storage.Archive
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Archive != nil {
		s.Archive.Close()
	}
}

// initializeServices connects the configured optional services.
// A service that cannot be reached is disabled with a warning.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr, 0)
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, page cache disabled: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s unavailable, progress publishing disabled: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)", cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	if cfg.ArchivePath != "" {
		archive, err := storage.NewArchive(cfg.ArchivePath)
		if err != nil {
			logger.Warn("Run archive disabled: %v", err)
		} else {
			services.Archive = archive
			logger.Info("Archiving runs to %s", cfg.ArchivePath)
		}
	}

	return services
}
