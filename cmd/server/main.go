package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"papertrader/internal/auth"
	"papertrader/internal/cache"
	"papertrader/internal/client/yahoo"
	"papertrader/internal/config"
	cronrunner "papertrader/internal/cron"
	"papertrader/internal/db"
	"papertrader/internal/handler"
	"papertrader/internal/ledger"
	"papertrader/internal/logger"
	"papertrader/internal/marketdata"
	"papertrader/internal/orderbook"
	gormrepo "papertrader/internal/repository/gorm"
	"papertrader/internal/service"
	"papertrader/internal/timetravel"
	"papertrader/internal/valuation"
)

func main() {
	cfgPath := os.Getenv("PT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("PT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepo.New(dbConn.Gorm)

	var quoteCache cache.Store
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		opt, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.Fatal("invalid redis url", zap.Error(err))
		}
		quoteCache = cache.NewRedisStore(opt)
	default:
		quoteCache = cache.NewMemoryStore()
	}

	prices := &marketdata.Series{
		Store:    store,
		Quotes:   quoteCache,
		QuoteTTL: cfg.Cache.QuoteTTL,
	}
	bookLedger := &ledger.Ledger{
		Store:          store,
		Logger:         logger,
		CommissionRate: decimal.NewFromFloat(cfg.Trading.CommissionRate),
	}
	book := &orderbook.OrderBook{
		Store:  store,
		Ledger: bookLedger,
		Prices: prices,
		Logger: logger,
	}
	valuationEngine := &valuation.Engine{Store: store, Prices: prices}
	scanner := &timetravel.Scanner{
		Store:  store,
		Prices: prices,
		Book:   book,
		Logger: logger,
	}

	yahooHTTP := &http.Client{Timeout: cfg.MarketData.Timeout}
	yahooClient := yahoo.NewClient(yahooHTTP, cfg.MarketData.BaseURL)
	barSync := &service.BarSyncService{
		Store:        store,
		Yahoo:        yahooClient,
		Logger:       logger,
		Symbols:      cfg.MarketData.Symbols,
		LookbackDays: cfg.MarketData.LookbackDays,
	}
	positionRefresh := &service.PositionRefreshService{
		Store:  store,
		Prices: prices,
		Logger: logger,
	}

	jwt := auth.JWT{
		Secret:   []byte(cfg.Auth.JWTSecret),
		TokenTTL: cfg.Auth.TokenTTL,
	}
	authService := &auth.Service{Store: store, JWT: jwt, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORSMiddleware())
	engine.Use(handler.RequestIDMiddleware())
	engine.Use(handler.RequestLogMiddleware(logger))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	authHandler := &handler.AuthHandler{Service: authService}
	authHandler.Register(engine)

	api := engine.Group("/api/v1")
	api.Use(handler.AuthMiddleware(jwt))

	portfolioHandler := &handler.PortfolioHandler{
		Repo:            store,
		Ledger:          bookLedger,
		Valuation:       valuationEngine,
		Scanner:         scanner,
		DefaultCurrency: cfg.Trading.DefaultCurrency,
	}
	portfolioHandler.Register(api)
	orderHandler := &handler.OrderHandler{Repo: store, Book: book}
	orderHandler.Register(api)
	marketHandler := &handler.MarketHandler{Repo: store, Prices: prices, BarSync: barSync}
	marketHandler.Register(api)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.BarSync, func(ctx context.Context) {
			result, err := barSync.Sync(ctx, service.SyncOptions{})
			if err != nil {
				logger.Warn("cron bar sync failed", zap.Error(err))
				return
			}
			logger.Info("cron bar sync ok",
				zap.Int("symbols", result.Symbols),
				zap.Int("instruments", result.Instruments),
				zap.Int("bars", result.Bars),
			)
		})
		if err != nil {
			logger.Fatal("cron bar sync schedule invalid", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.PositionRefresh, func(ctx context.Context) {
			result, err := positionRefresh.Refresh(ctx)
			if err != nil {
				logger.Warn("cron position refresh failed", zap.Error(err))
				return
			}
			logger.Info("cron position refresh ok",
				zap.Int("positions", result.Positions),
				zap.Int("updated", result.Updated),
				zap.Int("skipped", result.Skipped),
			)
		})
		if err != nil {
			logger.Fatal("cron position refresh schedule invalid", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
