package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/internal/book"
	"github.com/arbwatch/pmspread/internal/catalog"
	"github.com/arbwatch/pmspread/internal/detector"
	"github.com/arbwatch/pmspread/internal/feed"
	"github.com/arbwatch/pmspread/internal/pinned"
	"github.com/arbwatch/pmspread/internal/registry"
	"github.com/arbwatch/pmspread/internal/storage"
	"github.com/arbwatch/pmspread/internal/subscription"
	"github.com/arbwatch/pmspread/pkg/cache"
	"github.com/arbwatch/pmspread/pkg/config"
	"github.com/arbwatch/pmspread/pkg/healthprobe"
	"github.com/arbwatch/pmspread/pkg/httpserver"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	marketCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	bookStore := book.New(logger)
	reg := registry.New(bookStore, logger)

	catalogClient, catalogService := setupCatalog(cfg, logger, marketCache)

	ingestor := setupIngestor(cfg, logger, bookStore)

	controlCh := make(chan subscription.ControlMsg, cfg.ControlChannelBufferSize)
	controller := subscription.New(subscription.Config{
		Registry:  reg,
		Transport: ingestor,
		ControlIn: controlCh,
		Logger:    logger,
	})

	det := detector.New(detector.Config{
		Registry:         reg,
		PriceIn:          ingestor.PriceChanges(),
		TradeIn:          ingestor.Trades(),
		WindowBufferSize: cfg.WindowChannelBufferSize,
		Logger:           logger,
	})

	watcher := setupPinnedWatcher(cfg, reg, catalogService, controlCh, logger)

	windowStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	recorder := httpserver.NewWindowRecorder()

	httpServer := setupHTTPServer(cfg, logger, healthChecker, bookStore, reg, recorder)

	return &App{
		cfg:            cfg,
		opts:           opts,
		logger:         logger,
		healthChecker:  healthChecker,
		httpServer:     httpServer,
		cache:          marketCache,
		bookStore:      bookStore,
		registry:       reg,
		ingestor:       ingestor,
		detector:       det,
		controller:     controller,
		watcher:        watcher,
		catalogClient:  catalogClient,
		catalogService: catalogService,
		storage:        windowStorage,
		recorder:       recorder,
		controlCh:      controlCh,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	maxCost := int64(cfg.MaxMarkets)
	if maxCost <= 0 {
		maxCost = 1000
	}
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: maxCost * 10, // 10x expected max items
		MaxCost:     maxCost,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupCatalog(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache) (*catalog.Client, *catalog.Service) {
	client := catalog.NewClient(cfg.CatalogURL, logger)
	service := catalog.New(catalog.Config{
		Client:           client,
		Cache:            marketCache,
		Logger:           logger,
		MaxMarkets:       cfg.MaxMarkets,
		MinVolume24h:     cfg.MinVolume24h,
		MinLiquidity:     cfg.MinLiquidity,
		MinExpiryMinutes: cfg.MinExpiryMinutes,
		MaxExpiryHours:   cfg.MaxExpiryHours,
	})
	return client, service
}

func setupIngestor(cfg *config.Config, logger *zap.Logger, bookStore *book.Store) *feed.Ingestor {
	return feed.New(feed.Config{
		URL:               cfg.FeedURL,
		DialTimeout:       cfg.FeedDialTimeout,
		PongTimeout:       cfg.FeedPongTimeout,
		PingInterval:      cfg.FeedPingInterval,
		MessageBufferSize: cfg.FeedBufferSize,
		Logger:            logger,
	}, bookStore)
}

func setupPinnedWatcher(
	cfg *config.Config,
	reg *registry.Registry,
	catalogService *catalog.Service,
	controlCh chan<- subscription.ControlMsg,
	logger *zap.Logger,
) *pinned.Watcher {
	return pinned.New(pinned.Config{
		Prefixes:   cfg.PinnedSlugPrefixes,
		Registry:   reg,
		Fetcher:    catalogService,
		ControlOut: controlCh,
		Logger:     logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	bookStore *book.Store,
	reg *registry.Registry,
	recorder *httpserver.WindowRecorder,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  healthChecker,
		Book:           bookStore,
		Registry:       reg,
		WindowRecorder: recorder,
	})
}
