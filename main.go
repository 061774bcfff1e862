package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/swagger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	_ "github.com/kdimentionaltree/ton-wallet-indexer/docs"
	"github.com/kdimentionaltree/ton-wallet-indexer/index"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/blockchain"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/condition"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/crud"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/metrics"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/pipeline"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/proxy"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/publish"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/request"
	"github.com/kdimentionaltree/ton-wallet-indexer/index/tracing"
)

type Settings struct {
	PgDsn        string
	MaxConns     int
	MinConns     int
	LiteConfig   string
	ProxiesPath  string
	Cooldown     time.Duration
	Bind         string
	RedisUrl     string
	RedisChannel string
	OtlpEndpoint string
	OtlpInsecure bool
	Debug        bool
	Request      index.RequestSettings
}

var settings Settings
var current atomic.Pointer[pipeline.Indexer]

func envOr(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && len(v) > 0 {
		return v
	}
	return fallback
}

//	@title			TON Wallet Indexer
//	@version		1.0.0
//	@description	TON Wallet Indexer follows new blocks, fetches wallet and jetton balances of touched accounts from toncenter and stores them in PostgreSQL.

// @summary		Health Check
// @description	Check that the service is alive
// @id	healthcheck
// @tags	indexer
// @Produce      json
// @success		200	{object}	index.HealthResponse
// @router			/healthcheck [get]
func HealthCheck(c *fiber.Ctx) error {
	return c.Status(200).JSON(index.HealthResponse{Status: "OK"})
}

// @summary		Get Indexer Status
// @description	Get pipeline state, current request rates and the last cycle report
// @id	api_v1_get_status
// @tags	indexer
// @Accept       json
// @Produce      json
// @success		200	{object}	index.StatusResponse
// @failure		503	{object}	index.IndexError
// @router			/api/v1/status [get]
func GetStatus(c *fiber.Ctx) error {
	ix := current.Load()
	if ix == nil {
		return index.IndexError{Code: fiber.StatusServiceUnavailable, Message: "indexer is starting"}
	}
	res := ix.Status()
	return c.JSON(&res)
}

// ErrorHandlerFunc logs failed requests through logger.
func ErrorHandlerFunc(logger *logrus.Logger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		switch e := err.(type) {
		case index.IndexError:
			if e.Code != fiber.StatusServiceUnavailable {
				logger.WithFields(logrus.Fields{"code": e.Code, "path": ctx.Path()}).WithError(err).Warn("request failed")
			}
			return ctx.Status(e.Code).JSON(e)
		default:
			if errors.As(err, &fe) {
				return ctx.Status(fe.Code).JSON(index.IndexError{Code: fe.Code, Message: fe.Message})
			}
			logger.WithField("path", ctx.Path()).WithError(err).Error("request failed")
			resp := map[string]string{}
			resp["error"] = fmt.Sprintf("internal server error: %s", err.Error())
			return ctx.Status(fiber.StatusInternalServerError).JSON(resp)
		}
	}
}

func newApp(logger *logrus.Logger) *fiber.App {
	config := fiber.Config{
		AppName:               "TON Wallet Indexer",
		ErrorHandler:          ErrorHandlerFunc(logger),
		DisableStartupMessage: true,
	}
	app := fiber.New(config)
	if settings.Debug {
		app.Use(pprof.New())
	}

	app.Get("/healthcheck", HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/api/v1/status", GetStatus)

	// swagger
	var swagger_config = swagger.Config{
		Title:           "TON Wallet Indexer - Swagger UI",
		Layout:          "BaseLayout",
		DeepLinking:     true,
		TryItOutEnabled: true,
	}
	app.Get("/api/v1/*", swagger.New(swagger_config))
	return app
}

type connectFunc func(ctx context.Context, configUrl string) (*blockchain.LiteClient, error)

// connectLiteClient retries a failed connect once before giving up.
func connectLiteClient(ctx context.Context, logger *logrus.Entry, connect connectFunc) (*blockchain.LiteClient, error) {
	lite, err := connect(ctx, settings.LiteConfig)
	if err == nil {
		return lite, nil
	}
	logger.WithError(err).Warn("liteserver connection failed, retrying once")
	return connect(ctx, settings.LiteConfig)
}

// run builds a fresh indexer and blocks until it stops. Seen blocks, jetton
// set and request rates live only for the duration of one run.
func run(ctx context.Context, logger *logrus.Logger) error {
	lite, err := connectLiteClient(ctx, logger.WithField("component", "blockchain"), blockchain.Connect)
	if err != nil {
		return err
	}
	defer lite.Close()

	db, err := crud.NewDbClient(ctx, settings.PgDsn, settings.MaxConns, settings.MinConns)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CreateTables(ctx); err != nil {
		return err
	}

	proxies, err := proxy.Load(settings.ProxiesPath)
	if err != nil {
		return err
	}

	var store pipeline.Store = db
	if len(settings.RedisUrl) > 0 {
		opts, err := redis.ParseURL(settings.RedisUrl)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		store = publish.NewNotifyingStore(db, rdb, settings.RedisChannel, logger.WithField("component", "publish"))
	}

	rates := request.NewRateState(request.Rates{
		RequestDelay: settings.Request.RequestDelay,
		Timeout:      settings.Request.Timeout,
	})
	telemetry := request.NewTelemetry()
	client := request.NewClient(rates, telemetry, logger.WithField("component", "request"))
	controller := condition.New(rates, telemetry, logger.WithField("component", "condition"))
	seen := blockchain.NewSeenBlocks()

	ix := pipeline.New(pipeline.Options{
		Blocks:     blockchain.NewSource(lite, seen, logger.WithField("component", "blockchain")),
		Store:      store,
		Client:     client,
		Controller: controller,
		Proxies:    proxies,
		Settings:   settings.Request,
		Seen:       seen,
		Logger:     logger.WithField("component", "pipeline"),
	})
	if err := ix.LoadJettons(ctx); err != nil {
		return err
	}
	current.Store(ix)
	logger.WithFields(logrus.Fields{
		"proxies":       proxies.Len(),
		"request_delay": settings.Request.RequestDelay.String(),
		"timeout":       settings.Request.Timeout.String(),
	}).Info("indexer started")
	return ix.Run(ctx)
}

// supervise restarts fn after cooldown until ctx is done.
func supervise(ctx context.Context, logger *logrus.Logger, cooldown time.Duration, fn func(context.Context) error) {
	for {
		err := fn(ctx)
		if ctx.Err() != nil {
			return
		}
		metrics.Restarts.Inc()
		entry := logger.WithField("cooldown", cooldown.String())
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("indexer stopped, restarting after cooldown")

		select {
		case <-ctx.Done():
			return
		case <-time.After(cooldown):
		}
	}
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	defaults := index.DefaultRequestSettings()
	flag.StringVar(&settings.PgDsn, "pg", envOr("POSTGRESQL_URL", "postgresql://localhost:5432"), "PostgreSQL connection string")
	flag.IntVar(&settings.MaxConns, "maxconns", 100, "PostgreSQL max connections")
	flag.IntVar(&settings.MinConns, "minconns", 0, "PostgreSQL min connections")
	flag.StringVar(&settings.LiteConfig, "liteserver-config", "https://ton.org/global.config.json", "Liteserver global config url")
	flag.StringVar(&settings.ProxiesPath, "proxies", "proxy_keys.txt", "File with proxies and API keys, one 'proxy:::key' per line")
	flag.StringVar(&settings.Request.WalletUrl, "wallet-url", defaults.WalletUrl, "toncenter wallet endpoint")
	flag.StringVar(&settings.Request.JettonWalletsUrl, "jetton-wallets-url", defaults.JettonWalletsUrl, "toncenter jetton wallets endpoint")
	flag.DurationVar(&settings.Request.Timeout, "timeout", defaults.Timeout, "Initial request timeout")
	flag.DurationVar(&settings.Request.RequestDelay, "request-delay", defaults.RequestDelay, "Initial delay between requests of one proxy")
	flag.DurationVar(&settings.Cooldown, "cooldown", 15*time.Second, "Cooldown before restarting a stopped indexer")
	flag.StringVar(&settings.Bind, "bind", ":8082", "Status server bind address")
	flag.StringVar(&settings.RedisUrl, "redis", envOr("REDIS_URL", ""), "Redis url for save notifications, empty to disable")
	flag.StringVar(&settings.RedisChannel, "redis-channel", "ton-wallet-indexer", "Redis channel for save notifications")
	flag.StringVar(&settings.OtlpEndpoint, "otlp", envOr("OTLP_ENDPOINT", ""), "OTLP gRPC endpoint, empty to disable tracing")
	flag.BoolVar(&settings.OtlpInsecure, "otlp-insecure", true, "Disable TLS for the OTLP exporter")
	flag.BoolVar(&settings.Debug, "debug", false, "Run service in debug mode")
	flag.BoolVar(&settings.Request.IsTestnet, "testnet", false, "Render testnet user-friendly addresses")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if settings.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	// ctx for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sigterm handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal, canceling context...")
		cancel()
	}()

	shutdownTracing, err := tracing.Init(ctx, "ton-wallet-indexer", settings.OtlpEndpoint, settings.OtlpInsecure)
	if err != nil {
		logger.WithError(err).Fatal("Failed to init tracing")
	}

	// web server
	app := newApp(logger)
	go func() {
		if err := app.Listen(settings.Bind); err != nil {
			logger.WithError(err).Error("status server stopped")
		}
	}()

	supervise(ctx, logger, settings.Cooldown, func(ctx context.Context) error {
		return run(ctx, logger)
	})

	if err := app.Shutdown(); err != nil {
		logger.WithError(err).Error("Error stopping status server")
	}
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.WithError(err).Error("Error flushing traces")
	}
	logger.Info("Shutdown complete.")
}
