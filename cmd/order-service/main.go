package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dmehra2102/Food-Ordering-System/internal/config"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	orderhttp "github.com/dmehra2102/Food-Ordering-System/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/Food-Ordering-System/internal/order/infrastructure/kafka"
	ordermemory "github.com/dmehra2102/Food-Ordering-System/internal/order/infrastructure/memory"
	ordermongo "github.com/dmehra2102/Food-Ordering-System/internal/order/infrastructure/mongo"
	orderpg "github.com/dmehra2102/Food-Ordering-System/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/Food-Ordering-System/internal/payment/infrastructure/stripe"
	restaurantmongo "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/infrastructure/mongo"
	restaurantpg "github.com/dmehra2102/Food-Ordering-System/internal/restaurant/infrastructure/postgres"
	"github.com/dmehra2102/Food-Ordering-System/pkg/idempotency"
	"github.com/dmehra2102/Food-Ordering-System/pkg/logging"
	"github.com/dmehra2102/Food-Ordering-System/pkg/metrics"
	"github.com/dmehra2102/Food-Ordering-System/pkg/outbox"
	"github.com/dmehra2102/Food-Ordering-System/pkg/shutdown"
	"github.com/dmehra2102/Food-Ordering-System/pkg/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const serviceName = "order-service"

type stores struct {
	orders      application.OrderRepository
	restaurants application.RestaurantRepository
	outbox      outbox.Store
	closers     []shutdown.Func
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, serviceName, cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Error("metrics register failed", "err", err)
		os.Exit(1)
	}

	st, err := openStores(ctx, log, cfg)
	if err != nil {
		log.Error("store init failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}

	// Kafka producer and outbox relay
	writer := orderkafka.NewWriter(log, cfg.KafkaBrokers)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, st.outbox, dispatch, serviceName+"-relay")

	opts := []application.Option{}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, webhook dedupe relies on the store only", "addr", cfg.RedisAddr, "err", err)
	} else {
		opts = append(opts, application.WithDeduplicator(idempotency.NewStore(rdb, cfg.IdempotencyTTL)))
	}

	gateway := stripe.NewGateway(log, stripe.NewSessionClient(cfg.StripeAPIKey, cfg.StripeTimeout), cfg.FrontendURL)
	verifier := stripe.NewWebhookVerifier(cfg.StripeWebhookSecret)

	svc := application.NewService(log, st.orders, st.restaurants, gateway, verifier, opts...)
	handler := orderhttp.NewHandler(log, svc, orderhttp.NewAuthenticator(cfg.JWTSecret), cfg.FrontendURL)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.StripeTimeout + 10*time.Second,
	}

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	steps := []shutdown.Func{
		srv.Shutdown,
		func(ctx context.Context) error {
			select {
			case <-relayDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		func(context.Context) error { return writer.Close() },
		func(context.Context) error { return rdb.Close() },
	}
	steps = append(steps, st.closers...)
	steps = append(steps, tp.Shutdown)
	shutdown.Run(log, 15*time.Second, steps...)
	log.Info("order-service shutdown complete")
}

func openStores(ctx context.Context, log *slog.Logger, cfg config.Config) (stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			return stores{}, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			return stores{}, err
		}
		db := client.Database(cfg.MongoDB)
		repo := ordermongo.NewRepository(log, client, db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return stores{}, err
		}
		return stores{
			orders:      repo,
			restaurants: restaurantmongo.NewRepository(log, db),
			outbox:      ordermongo.NewOutboxStore(log, db),
			closers:     []shutdown.Func{client.Disconnect},
		}, nil

	case config.DriverMemory:
		restaurants := ordermemory.NewRestaurants()
		if cfg.SeedFile != "" {
			seed, err := ordermemory.LoadSeed(cfg.SeedFile)
			if err != nil {
				return stores{}, err
			}
			for _, r := range seed {
				restaurants.Put(r)
			}
			log.Info("restaurants seeded", "count", len(seed), "file", cfg.SeedFile)
		}
		orders := ordermemory.NewOrders(restaurants)
		return stores{orders: orders, restaurants: restaurants, outbox: orders}, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return stores{}, err
		}
		if err := orderpg.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		return stores{
			orders:      orderpg.NewRepository(log, pool),
			restaurants: restaurantpg.NewRepository(log, pool),
			outbox:      orderpg.NewOutboxStore(log, pool),
			closers: []shutdown.Func{func(context.Context) error {
				pool.Close()
				return nil
			}},
		}, nil
	}
}
