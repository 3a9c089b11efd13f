package commands

import (
	"context"
	"fmt"

	"github.com/wonny/b3lake/backend/internal/assembler"
	"github.com/wonny/b3lake/backend/internal/asset"
	"github.com/wonny/b3lake/backend/internal/calendar"
	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/external/b3"
	"github.com/wonny/b3lake/backend/internal/external/brasilapi"
	"github.com/wonny/b3lake/backend/internal/features"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/internal/lakeconfig"
	"github.com/wonny/b3lake/backend/internal/store"
	"github.com/wonny/b3lake/backend/pkg/config"
	"github.com/wonny/b3lake/backend/pkg/httputil"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
	"github.com/wonny/b3lake/backend/pkg/redis"
)

// app holds every wired component shared by the commands
type app struct {
	cfg      *config.Config
	lakeCfg  *lakeconfig.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	redis    *redis.Client
	store    contracts.Lake
	b3       *b3.Client
	calendar *calendar.Calendar
	assets   *asset.Service
	lake     *lake.Service
}

// newApp loads configuration and wires the lake
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if storeDriver != "" {
		cfg.StoreDriver = storeDriver
	}
	if lakeConfigPath != "" {
		cfg.LakeConfigPath = lakeConfigPath
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	lakeCfg, err := lakeconfig.LoadOrDefault(cfg.LakeConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load lake config: %w", err)
	}
	hash, err := lakeconfig.Hash(lakeCfg)
	if err != nil {
		return nil, fmt.Errorf("hash lake config: %w", err)
	}

	// 3. Open store
	lakeStore, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	// 4. Redis (optional)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rdb = redis.Disabled()
	}
	cache := redis.NewCache(rdb, "lake")
	limiter := redis.NewRateLimiter(rdb, "lake")

	m := metrics.New()

	// 5. External clients
	b3Client := b3.NewClient(
		httputil.New(log).WithLocalLimiter(2, 1).WithRateLimiter(limiter, redis.B3RateLimit),
		cfg.B3.BaseURL,
		log,
	)
	holidays := brasilapi.NewClient(
		httputil.New(log).WithLocalLimiter(10, 5).WithRateLimiter(limiter, redis.BrasilAPIRateLimit),
		cfg.BrasilAPI.BaseURL,
		log,
	)
	cal := calendar.New(holidays, lakeStore.Quotes(), log)

	// 6. Services
	engine := features.NewEngine(
		features.WithLogger(log),
		features.WithMetrics(m),
		features.WithPlaceholderMarket(lakeCfg.Engine.PlaceholderMarket),
	)
	asm := assembler.New(lakeStore.Quotes(), lakeCfg.Assembler, log, m)

	assets := asset.NewService(lakeStore.Quotes(), lakeStore.Featured(), asm, engine, cache, lakeCfg.Cache.AssetTTL, log, m)
	if cfg.B3.LiveLookup {
		assets.WithDailySource(b3Client, cal)
	}

	lakeSvc := lake.NewService(lakeStore.Quotes(), lakeStore.Featured(), engine, b3Client, cache, hash, log, m)

	log.WithFields(map[string]interface{}{
		"store":       cfg.StoreDriver,
		"redis":       rdb.Enabled(),
		"config_hash": hash,
		"live_lookup": cfg.B3.LiveLookup,
	}).Debug("Lake wired")

	return &app{
		cfg:      cfg,
		lakeCfg:  lakeCfg,
		logger:   log,
		metrics:  m,
		redis:    rdb,
		store:    lakeStore,
		b3:       b3Client,
		calendar: cal,
		assets:   assets,
		lake:     lakeSvc,
	}, nil
}

// Close releases the store and redis connections
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close store")
	}
	if err := a.redis.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close redis")
	}
}

// serveMetrics exposes /metrics in the background when enabled
func (a *app) serveMetrics(ctx context.Context) {
	if !a.cfg.MetricsEnabled {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, ":"+a.cfg.MetricsPort); err != nil {
			a.logger.WithError(err).Error("Metrics server stopped")
		}
	}()
}
