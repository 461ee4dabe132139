package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chonkyweb/petcare/libs/config"
	"github.com/chonkyweb/petcare/libs/db"
	"github.com/chonkyweb/petcare/libs/grpcx"
	"github.com/chonkyweb/petcare/libs/httpx"
	"github.com/chonkyweb/petcare/libs/kafkax"
	"github.com/chonkyweb/petcare/libs/money"
	otelx "github.com/chonkyweb/petcare/libs/otel"
	"github.com/chonkyweb/petcare/libs/runtime"
	"github.com/chonkyweb/petcare/services/booking-service/internal/availability"
	"github.com/chonkyweb/petcare/services/booking-service/internal/handlers"
	"github.com/chonkyweb/petcare/services/booking-service/internal/outbox"
	"github.com/chonkyweb/petcare/services/booking-service/internal/payment"
	"github.com/chonkyweb/petcare/services/booking-service/internal/storage"
	"github.com/chonkyweb/petcare/services/booking-service/internal/txcache"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(healthcheck())
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := config.Location("BUSINESS_TIMEZONE", "Asia/Manila")
	if err != nil {
		panic(err)
	}
	formatter, err := money.NewFormatter(config.String("CURRENCY_SYMBOL", "₱"), config.String("CURRENCY_LOCALE", "en-PH"))
	if err != nil {
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("DB_AUTO_MIGRATE", false) {
		if err := storage.Migrate(ctx, pool); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}
		logger.Info("schema migrations applied")
	}

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	probes := []grpcx.Probe{{Service: "db", Check: db.ReadyCheck(pool)}}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		redisCheck := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		// Redis only backs caches and counters; the service degrades without it.
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Optional: true, Check: redisCheck})
		probes = append(probes, grpcx.Probe{Service: "redis", Check: redisCheck})
	}

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Optional: true, Check: kafkax.ReadyCheck(brokers)})

	cacheTTL := time.Duration(config.Int("TRANSACTION_CACHE_TTL_HOURS", 720)) * time.Hour
	var (
		cache payment.TransactionCache
		refs  payment.ReferenceGenerator = payment.NewRandomReferences()
	)
	if rdb != nil {
		cache = txcache.NewRedis(rdb, "petcare:txn", cacheTTL)
	} else {
		logger.Warn("REDIS_ADDR not set; receipts cached in process memory")
		cache = txcache.NewMemory(cacheTTL)
	}
	switch mode := strings.ToLower(config.String("REFERENCE_MODE", "random")); mode {
	case "sequence":
		if rdb == nil {
			logger.Warn("REFERENCE_MODE=sequence needs REDIS_ADDR; using random references")
			break
		}
		refs = payment.NewSequenceReferences(rdb, "petcare:refseq")
	case "random":
	default:
		logger.Warn("unknown REFERENCE_MODE; using random references", "mode", mode)
	}

	repo := storage.NewRepository(pool, loc)
	outboxPublisher := outbox.NewPublisher(pool, outbox.NewRepository(pool), logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(repo, logger, handlers.Config{
		Hours:      availability.DefaultBusinessHours(loc),
		Money:      formatter,
		References: refs,
		Cache:      cache,
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	bookingHandler.Register(mux)

	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var publicLimit httpx.Middleware
	if limit > 0 {
		var limiter httpx.Limiter = httpx.NewMemoryLimiter(limit, time.Minute)
		if rdb != nil {
			limiter = httpx.NewRedisLimiter(rdb, limit, time.Minute, "petcare:rl")
		}
		publicLimit = httpx.WithRateLimit(limiter, logger, true)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", "X-Request-Id", "X-User-Id", "X-Role"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.OnlyPrefix("/api/v1/public/", publicLimit),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcx.NewServer(logger)
	go grpcServer.WatchProbes(ctx, 10*time.Second, probes...)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(ctx, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// healthcheck probes the local gRPC health service; container runtimes call
// it as "booking-service healthcheck".
func healthcheck() int {
	port := config.String("GRPC_PORT", "9093")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := grpcx.CheckHealth(ctx, net.JoinHostPort("127.0.0.1", port), ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
