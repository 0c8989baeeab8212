package app

import (
	"context"
	"sync"

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

// App is the main application orchestrator: it wires the Book Store,
// Market Registry, Feed Ingestor, Spread Detector, Subscription
// Controller, Pinned-Market Watcher, and Universe Fetcher into a single
// running pipeline, plus the ambient HTTP and storage surface around it.
type App struct {
	cfg    *config.Config
	opts   *Options
	logger *zap.Logger

	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	cache          cache.Cache
	bookStore      *book.Store
	registry       *registry.Registry
	ingestor       *feed.Ingestor
	detector       *detector.Detector
	controller     *subscription.Controller
	watcher        *pinned.Watcher
	catalogClient  *catalog.Client
	catalogService *catalog.Service
	storage        storage.Storage
	recorder       *httpserver.WindowRecorder

	controlCh chan subscription.ControlMsg

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	SingleMarket string // For debugging: slug of single market to track
}
