package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"Storefront/internal/api"
	"Storefront/internal/config"
	"Storefront/internal/events"
	"Storefront/internal/idempotency"
	"Storefront/internal/order"
	"Storefront/internal/payment"
	"Storefront/pkg/kit"
)

const service = "storefront"

func main() {
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var closers []func(context.Context) error

	store, closeStore := openOrderStore(ctx, cfg, log)
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	idem, closeIdem := openIdempotencyStore(ctx, cfg, log)
	if closeIdem != nil {
		closers = append(closers, closeIdem)
	}

	publisher := events.Publisher(events.Nop{})
	if cfg.OrderEventsQueueURL != "" {
		p, err := events.NewSQSPublisherFromEnv(ctx, cfg.AWSRegion, cfg.OrderEventsQueueURL)
		if err != nil {
			log.Fatal("sqs publisher", zap.Error(err))
		}
		publisher = p
		log.Info("publishing order events", zap.String("queue_url", cfg.OrderEventsQueueURL))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := payment.NewMetrics(reg)

	provider := payment.NewStripeProvider(cfg.StripeSecretKey)

	rc := order.NewRecorder(store, order.IntentStatusFunc(payment.IntentStatus(provider)), log)
	rc.Idem = idem
	rc.Publisher = publisher

	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set; webhook calls will be rejected")
	}

	h := api.NewHandler(api.Services{
		Payments: &payment.Server{
			Provider: provider,
			Orders:   rc,
			Log:      log,
			Metrics:  metrics,
			Limiter:  kit.NewIPRateLimiter(cfg.IntentRateLimitPerMin, time.Minute),
		},
		Webhooks: &payment.Webhooks{
			Secret:  cfg.StripeWebhookSecret,
			Orders:  rc,
			Log:     log,
			Metrics: metrics,
		},
		Orders: &order.Server{
			Recorder:       rc,
			Log:            log,
			AdminJWTSecret: cfg.AdminJWTSecret,
		},
		Store: store,
	}, api.HTTPDeps{
		Log:          log,
		Service:      service,
		Registry:     reg,
		MetricsToken: cfg.MetricsToken,
		FrontendURL:  cfg.FrontendURL,
	})

	if err := kit.RunHTTPServer(cfg.Addr(), h, log, closers...); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func openOrderStore(ctx context.Context, cfg config.Config, log *zap.Logger) (order.Store, func(context.Context) error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set; orders are kept in memory only")
		return order.NewMemStore(), nil
	}

	db, err := order.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	store := order.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}
	log.Info("order store: postgres")
	return store, func(context.Context) error { return db.Close() }
}

func openIdempotencyStore(ctx context.Context, cfg config.Config, log *zap.Logger) (idempotency.Store, func(context.Context) error) {
	if cfg.RedisURL == "" {
		return idempotency.NewMemStore(cfg.IdempotencyTTL), nil
	}

	rdb, err := idempotency.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	log.Info("idempotency store: redis")
	return idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL), func(context.Context) error { return rdb.Close() }
}
