package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	inventoryhandler "github.com/vdgsa/rental-backend/domains/inventory/be/handler"
	inventoryrepo "github.com/vdgsa/rental-backend/domains/inventory/be/repo"
	inventoryservice "github.com/vdgsa/rental-backend/domains/inventory/be/service"
	rentalshandler "github.com/vdgsa/rental-backend/domains/rentals/be/handler"
	rentalsrepo "github.com/vdgsa/rental-backend/domains/rentals/be/repo"
	rentalsservice "github.com/vdgsa/rental-backend/domains/rentals/be/service"
	waitlisthandler "github.com/vdgsa/rental-backend/domains/waitlist/be/handler"
	waitlistrepo "github.com/vdgsa/rental-backend/domains/waitlist/be/repo"
	waitlistservice "github.com/vdgsa/rental-backend/domains/waitlist/be/service"
	"github.com/vdgsa/rental-backend/platform/go/cache"
	platformlogging "github.com/vdgsa/rental-backend/platform/go/logging"
	platformmiddleware "github.com/vdgsa/rental-backend/platform/go/middleware"
	"github.com/vdgsa/rental-backend/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	ApplySchema     bool          `env:"APPLY_SCHEMA" envDefault:"true"`
	RedisAddr       string        `env:"REDIS_ADDR"` // empty disables the listing cache
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ListingCacheTTL time.Duration `env:"LISTING_CACHE_TTL" envDefault:"30s"`
}

func main() {
	ctx := context.Background()

	// Local development reads .env; in deployment the variables are set
	// by the environment and the file is absent.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "rental-api",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	if cfg.ApplySchema {
		if err := persistence.ApplySchema(ctx, pool); err != nil {
			logger.Fatal("apply database schema", zap.Error(err))
		}
	}

	listingCache, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.ListingCacheTTL,
	})
	if err != nil {
		logger.Fatal("init redis cache", zap.Error(err))
	}
	defer func() {
		_ = listingCache.Close()
	}()
	if listingCache == nil {
		logger.Info("listing cache disabled; REDIS_ADDR not set")
	}

	itemStore, err := persistence.NewItemStore(pool)
	if err != nil {
		logger.Fatal("init item store", zap.Error(err))
	}
	historyStore, err := persistence.NewHistoryStore(pool)
	if err != nil {
		logger.Fatal("init history store", zap.Error(err))
	}
	waitlistStore, err := persistence.NewWaitlistStore(pool)
	if err != nil {
		logger.Fatal("init waitlist store", zap.Error(err))
	}

	inventorySvc := inventoryservice.New(inventoryrepo.NewPostgres(itemStore))
	inventoryHTTP := inventoryhandler.New(inventorySvc, listingCache, logger)

	rentalsSvc := rentalsservice.New(rentalsrepo.NewPostgres(historyStore))
	rentalsHTTP := rentalshandler.New(rentalsSvc, logger)

	waitlistSvc := waitlistservice.New(waitlistrepo.NewPostgres(waitlistStore))
	waitlistHTTP := waitlisthandler.New(waitlistSvc, logger)

	rootRouter := chi.NewRouter()
	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)
	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	apiRouter := chi.NewRouter()
	inventoryHTTP.Routes(apiRouter)
	rentalsHTTP.Routes(apiRouter)
	waitlistHTTP.Routes(apiRouter)
	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting rental api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
