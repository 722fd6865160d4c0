package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.MustLoad()

	l := logger.New(os.Stdout, cfg.LogLevel, cfg.DevMode)
	log.Logger = l

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spans exist so request logs carry trace_id and span_id; no exporter is configured.
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	// MongoDB
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to disconnect from MongoDB")
		}
	}()
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		l.Fatal().Err(err).Msg("failed to create indexes")
	}
	users := repository.NewMongoUserRepository(mongoDB)
	orders := repository.NewMongoOrderRepository(mongoDB)
	l.Info().Str("database", cfg.MongoDBName).Msg("connected to MongoDB")

	// Product catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open catalog")
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		l.Fatal().Err(err).Msg("failed to run catalog migrations")
	}
	l.Info().Str("path", cfg.CatalogDBPath).Msg("catalog ready")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Fatal().Err(err).Msg("redis connection failed")
	}
	cartCache := cache.NewRedisCache(redisClient)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	userService := service.NewUserService(users, tokens, l)
	cartService := service.NewCartService(users, products, cartCache, collector, l)
	favouriteService := service.NewFavouriteService(users, products, l)
	productService := service.NewProductService(products)
	orderService, err := service.NewOrderService(orders, users, cartCache, cfg.PlacementMode, collector, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create order service")
	}

	limiter := h.NewRateLimiter(h.RateLimiterConfig{
		Rate:  rate.Limit(cfg.RateLimitRPS),
		Burst: cfg.RateLimitBurst,
	})
	defer limiter.Stop()

	router := h.NewRouter(h.RouterDeps{
		Users:          userService,
		Carts:          cartService,
		Favourites:     favouriteService,
		Orders:         orderService,
		Products:       productService,
		Tokens:         tokens,
		Limiter:        limiter,
		Metrics:        collector,
		Gatherer:       reg,
		Logger:         l,
		RequestTimeout: cfg.RequestTimeout,
	})

	var workers sync.WaitGroup
	if cfg.PlacementMode == domain.PlacementTwoPhase {
		recovery := publisher.NewCartClearRecovery(publisher.DefaultConfig(), orders, orderService, l)
		workers.Add(1)
		go func() {
			defer workers.Done()
			recovery.Run(ctx)
		}()
	}

	if cfg.KafkaEnabled() {
		writer := publisher.NewKafkaWriter(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		defer writer.Close()
		outbox := publisher.NewOutboxPoller(publisher.DefaultConfig(), orders, writer, collector, l)

		consumer := poller.NewPoller(poller.NewKafkaReader(cfg.OrderEventsTopic, cfg.KafkaBrokers...), orderService, cartCache, l)
		defer consumer.Close()

		workers.Add(2)
		go func() {
			defer workers.Done()
			outbox.Run(ctx)
		}()
		go func() {
			defer workers.Done()
			consumer.Run(ctx)
		}()
		l.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.OrderEventsTopic).Msg("order events enabled")
	} else {
		l.Warn().Msg("KAFKA_BROKERS not set, order events disabled")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", cfg.HTTPAddr).Str("placement", string(cfg.PlacementMode)).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}
	workers.Wait()

	l.Info().Msg("server exited")
}
