package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/gateway/config"
	"github.com/nhb-labs/agentic-wallet/gateway/middleware"
	"github.com/nhb-labs/agentic-wallet/gateway/routes"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/intentrouter"
	"github.com/nhb-labs/agentic-wallet/observability"
	"github.com/nhb-labs/agentic-wallet/observability/logging"
	telemetry "github.com/nhb-labs/agentic-wallet/observability/otel"
	"github.com/nhb-labs/agentic-wallet/orchestrator"
	"github.com/nhb-labs/agentic-wallet/strategy"
	"github.com/nhb-labs/agentic-wallet/wallet"
)

const maxEventHistory = 500

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to walletd configuration overlay")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NODE_ENV"))
	slogger := logging.Setup("walletd", env)
	logger := log.New(os.Stdout, "walletd ", log.LstdFlags|log.Lmsgprefix)

	otlpEndpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	otlpHeaders := telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	insecure := true
	if v := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			insecure = parsed
		}
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "walletd",
		Environment: env,
		Endpoint:    otlpEndpoint,
		Insecure:    insecure,
		Headers:     otlpHeaders,
		Metrics:     otlpEndpoint != "",
		Traces:      otlpEndpoint != "",
	})
	if err != nil {
		slogger.Error("failed to initialise telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if shutdownTelemetry != nil {
			_ = shutdownTelemetry(context.Background())
		}
	}()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	bus := eventbus.NewBus(eventbus.WithMaxHistorySize(maxEventHistory), eventbus.WithLogger(slogger))
	historyStore := history.NewStore(1000)

	chainClient, err := chain.NewSimClient(cfg.Network)
	if err != nil {
		logger.Fatalf("construct chain client: %v", err)
	}

	vault := wallet.NewVault(cfg.KeyEncryptionSecret, wallet.WithLogger(slogger))

	strategies := strategy.NewRegistry()
	if err := strategy.RegisterBuiltins(strategies); err != nil {
		logger.Fatalf("register strategies: %v", err)
	}

	sendOpts := chain.SendOptions{MaxRetries: cfg.MaxRetries, ConfirmationTimeout: cfg.ConfirmationTimeout}

	orch := orchestrator.NewOrchestrator(vault, chainClient, strategies, bus, historyStore,
		orchestrator.WithMaxAgents(cfg.MaxAgents),
		orchestrator.WithLogger(slogger),
		orchestrator.WithSendOptions(sendOpts),
	)

	registry := byoa.NewRegistry(byoa.WithMaxAgents(cfg.MaxAgents))
	binder := byoa.NewBinder(registry, vault, slogger)
	router := intentrouter.NewRouter(registry, vault, chainClient, bus, historyStore,
		intentrouter.WithLogger(slogger),
		intentrouter.WithSendOptions(sendOpts),
	)

	metrics := observability.NewMetrics(bus)

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   "walletd",
		MetricsPrefix: "walletd",
		LogRequests:   strings.EqualFold(cfg.LogLevel, "debug"),
		Enabled:       true,
	}, logger)

	auth := middleware.NewAuthenticator(middleware.AdminAuthConfig{
		AdminKey: os.Getenv("ADMIN_KEY"),
	}, registry, logger)

	rateLimiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"api": {RatePerSecond: 20, Burst: 40},
	}, logger)

	handler := routes.New(routes.Config{
		Orchestrator:  orch,
		Registry:      registry,
		Binder:        binder,
		IntentRouter:  router,
		Strategies:    strategies,
		Bus:           bus,
		History:       historyStore,
		Chain:         chainClient,
		Authenticator: auth,
		Observability: obs,
		Metrics:       metrics,
		RateLimiter:   rateLimiter,
		CORS: middleware.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Admin-Key"},
		},
		Network: cfg.Network,
	})

	addr := net.JoinHostPort("", strconv.Itoa(cfg.Port))
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	go func() {
		logger.Printf("listening on %s (network=%s)", listener.Addr(), cfg.Network)
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatalf("listen and serve: %v", serveErr)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
	orch.Shutdown()
}
