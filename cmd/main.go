package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/commerce-service/internal/checkout"
	"github.com/fjod/go_cart/commerce-service/internal/commission"
	"github.com/fjod/go_cart/commerce-service/internal/config"
	"github.com/fjod/go_cart/commerce-service/internal/confirm"
	"github.com/fjod/go_cart/commerce-service/internal/currency"
	h "github.com/fjod/go_cart/commerce-service/internal/http"
	"github.com/fjod/go_cart/commerce-service/internal/listing"
	"github.com/fjod/go_cart/commerce-service/internal/metrics"
	"github.com/fjod/go_cart/commerce-service/internal/notify"
	"github.com/fjod/go_cart/commerce-service/internal/payment"
	"github.com/fjod/go_cart/commerce-service/internal/shopper"
	"github.com/fjod/go_cart/commerce-service/internal/storage"
	"github.com/fjod/go_cart/commerce-service/internal/upstream"
	"github.com/fjod/go_cart/commerce-service/pkg/circuitbreaker"
	"github.com/fjod/go_cart/commerce-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const serviceName = "commerce-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("service stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	match, ok := currency.ParseLocaleMatch(cfg.Storefront.LocaleMatch)
	if !ok {
		return fmt.Errorf("unknown locale match %q", cfg.Storefront.LocaleMatch)
	}
	policy, ok := checkout.ParseClearPolicy(cfg.Storefront.CartClearPolicy)
	if !ok {
		return fmt.Errorf("unknown cart clear policy %q", cfg.Storefront.CartClearPolicy)
	}

	// Storage: Redis when reachable, process memory otherwise
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var store storage.Store
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := redisClient.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		log.Warn("redis unavailable, carts and currency preferences will not survive a restart", "addr", cfg.Redis.Addr, "error", err)
		store = storage.NewMemoryStore()
	} else {
		log.Info("redis ping succeeded", "addr", cfg.Redis.Addr)
		store = storage.NewRedisStore(redisClient, storage.WithTTL(cfg.Redis.TTL, cfg.Redis.TTLJitter))
	}

	// Notifications
	sinks := notify.Multi{notify.NewLogSink(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Warn("closing kafka writer failed", "error", err)
			}
		}()
		sinks = append(sinks, kafkaSink)
		log.Info("publishing notifications to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Upstream clients
	listings := listing.NewClient(
		cfg.Listing.URL,
		upstream.NewHTTPClient(cfg.Listing.Timeout),
		cfg.Listing.Timeout,
		listing.RetryConfig{
			Attempts: cfg.Listing.RetryAttempts,
			Delay:    cfg.Listing.RetryDelay,
			MaxDelay: cfg.Listing.RetryMaxDelay,
		},
		circuitbreaker.Settings{
			MaxFailures: cfg.Listing.Breaker.MaxFailures,
			OpenTimeout: cfg.Listing.Breaker.OpenTimeout,
			Log:         log,
		},
		log,
	)
	payments := payment.NewClient(
		cfg.Payment.URL,
		upstream.NewHTTPClient(cfg.Payment.Timeout),
		cfg.Payment.Timeout,
		circuitbreaker.Settings{
			MaxFailures: cfg.Payment.Breaker.MaxFailures,
			OpenTimeout: cfg.Payment.Breaker.OpenTimeout,
			Log:         log,
		},
		log,
	)

	m := metrics.New()
	registry := shopper.NewRegistry(shopper.Config{
		Store:       store,
		Sink:        sinks,
		Listings:    listings,
		Orders:      payments,
		Commission:  commission.New(cfg.Storefront.CommissionRate, !cfg.Storefront.ChargeCommission),
		LocaleMatch: match,
		ClearPolicy: policy,
		LoadTimeout: cfg.Storefront.ProfileLoadTimeout,
		PendingHold: cfg.Storefront.PendingCheckoutHold,
		Log:         log,
	})

	router := h.NewRouter(h.RouterConfig{
		Profiles:           registry,
		Listings:           listings,
		Metrics:            m,
		JWTSecret:          cfg.Auth.JWTSecret,
		RequestTimeout:     cfg.HTTP.RequestTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxRequestBodySize,
		EmptyCartPath:      cfg.Storefront.EmptyCartPath,
		Log:                log,
	})
	if cfg.Auth.JWTSecret == "" {
		log.Warn("JWT_SECRET not set, bearer tokens are forwarded without verification")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("commerce service starting", "port", cfg.HTTP.Port,
			"locale_match", string(match), "cart_clear_policy", string(policy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Storefront.EvictionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := registry.Evict(cfg.Storefront.ProfileIdleTimeout); n > 0 {
					m.EvictedProfiles.Add(float64(n))
					log.Debug("evicted idle profiles", "count", n)
				}
				m.ActiveProfiles.Set(float64(registry.Len()))
			}
		}
	})
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := confirm.NewConsumer(registry, log, cfg.Kafka.ConfirmTopic, cfg.Kafka.ConfirmGroupID, cfg.Kafka.Brokers...)
		defer func() {
			if err := consumer.Close(); err != nil {
				log.Warn("closing kafka reader failed", "error", err)
			}
		}()
		g.Go(func() error {
			log.Info("consuming payment confirmations", "topic", cfg.Kafka.ConfirmTopic)
			return consumer.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
