package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"main/internal/application/service/pipeline"
	"main/internal/config"
	"main/internal/domain/interfaces"
	infrabroker "main/internal/infrastructure/broker"
	infracache "main/internal/infrastructure/cache"
	inframetadata "main/internal/infrastructure/metadata"
	infrasources "main/internal/infrastructure/sources"
	infratimeseries "main/internal/infrastructure/timeseries"
	infrahttp "main/internal/interfaces/http"
	"main/internal/trigger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	timeseriesRepo, err := infratimeseries.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init timeseries repo: %v", err)
	}
	defer timeseriesRepo.Close()

	metadataRepo, err := inframetadata.NewRepository(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init metadata repo: %v", err)
	}
	defer metadataRepo.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	cache := infracache.New(redisClient, cfg.Cache.SnapshotTTL, cfg.Cache.MarketHashTTL)

	sourceConfigs, err := infrasources.LoadConfigs(cfg.Pipeline.SourcesFile)
	if err != nil {
		logger.Fatalf("failed to load source configs: %v", err)
	}
	registry, err := infrasources.NewRegistry(sourceConfigs)
	if err != nil {
		logger.Fatalf("failed to build source registry: %v", err)
	}
	logger.WithField("sources", registry.Len()).Info("source registry ready")

	var publisher interfaces.Publisher
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := infrabroker.NewPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			logger.WithError(err).Warn("broker unavailable, publishing disabled")
		} else {
			publisher = amqpPublisher
			defer amqpPublisher.Close()
		}
	}

	resolver := pipeline.NewIdentityResolver(metadataRepo, cache, cfg.Cache.UnmappedTTL, logger)
	extractor := pipeline.NewExtractor(cfg.Pipeline.SourceTimeout, logger)
	transformer := pipeline.NewTransformer(resolver, cfg.Pipeline.TransformBatchSize, logger)
	loader := pipeline.NewLoader(timeseriesRepo, cache, metadataRepo, cfg.Pipeline.SinkTimeout, logger)

	intervals := make([]pipeline.CandleInterval, len(cfg.Pipeline.CandleIntervals))
	for i, iv := range cfg.Pipeline.CandleIntervals {
		intervals[i] = pipeline.CandleInterval{Label: iv.Label, Width: iv.Width}
	}
	aggregator := pipeline.NewAggregator(timeseriesRepo, publisher, cfg.Pipeline.VWAPWindow, intervals, logger)

	coordinator := pipeline.NewCoordinator(
		extractor,
		transformer,
		loader,
		aggregator,
		registry.Adapters(),
		metadataRepo,
		publisher,
		logger,
	)

	handler := infrahttp.NewHandler(coordinator, timeseriesRepo, cache)
	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler,
	}

	sched := trigger.New(coordinator, cfg.Pipeline.IngestInterval, cfg.Pipeline.TriggerJitter, logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("HTTP server listening on %s", cfg.HTTP.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := sched.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// One candle job per configured interval, each on its own cadence,
	// plus the raw 1m backfill job. A failing interval never stops the
	// others.
	for _, interval := range aggregator.Intervals() {
		job := trigger.New(trigger.RunnerFunc(func(ctx context.Context) error {
			return aggregator.BuildIntervalCandles(ctx, interval)
		}), interval.Width, 0, logger)
		group.Go(func() error {
			err := job.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	rawJob := trigger.New(trigger.RunnerFunc(aggregator.BuildRawMinuteCandles), time.Minute, 0, logger)
	group.Go(func() error {
		err := rawJob.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Infof("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Errorf("server error: %v", err)
	}
	logger.Info("server stopped")
}
