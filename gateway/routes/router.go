package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/gateway/middleware"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/intentrouter"
	"github.com/nhb-labs/agentic-wallet/observability"
	"github.com/nhb-labs/agentic-wallet/orchestrator"
	"github.com/nhb-labs/agentic-wallet/strategy"
)

// Config wires every component the HTTP surface fronts. All fields are
// required except CORS, Observability, Metrics, RateLimiter and Now:
// CORS falls back to permissive defaults, Now to time.Now, and a nil
// Observability, Metrics or RateLimiter leaves that feature off.
type Config struct {
	Orchestrator  *orchestrator.Orchestrator
	Registry      *byoa.Registry
	Binder        *byoa.Binder
	IntentRouter  *intentrouter.Router
	Strategies    *strategy.Registry
	Bus           *eventbus.Bus
	History       *history.Store
	Chain         chain.Client
	Authenticator *middleware.Authenticator
	Observability *middleware.Observability
	Metrics       *observability.Metrics
	RateLimiter   *middleware.RateLimiter
	CORS          middleware.CORSConfig
	Network       string
	Now           func() time.Time
}

type api struct {
	cfg Config
	now func() int64
}

// New builds the platform's HTTP handler: CORS, observability, then every
// route in the `/api` table, plus `/ws` and `/metrics`.
func New(cfg Config) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &api{cfg: cfg, now: func() int64 { return cfg.Now().UnixMilli() }}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware("api"))
	}

	r.Get("/health", a.handleHealth)
	r.Get("/ws", a.handleWebSocket)
	if handler := metricsHandler(cfg); handler != nil {
		r.Handle("/metrics", handler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware("api"))
		}
		api.Get("/stats", a.handleStats)

		api.Get("/agents", a.handleListAgents)
		api.Get("/agents/{id}", a.handleGetAgent)
		api.Group(func(admin chi.Router) {
			admin.Use(a.requireAdmin)
			admin.Post("/agents", a.handleCreateAgent)
			admin.Patch("/agents/{id}/config", a.handleUpdateAgentConfig)
			admin.Post("/agents/{id}/start", a.handleStartAgent)
			admin.Post("/agents/{id}/stop", a.handleStopAgent)
		})

		api.Get("/transactions", a.handleTransactions)
		api.Get("/events", a.handleEvents)
		api.Get("/intents", a.handleIntents)

		api.Get("/strategies", a.handleListStrategies)
		api.Get("/strategies/{name}", a.handleGetStrategy)

		api.Get("/explorer/{signature}", a.handleExplorer)

		api.Route("/byoa", func(b chi.Router) {
			b.Get("/agents", a.handleListExternalAgents)
			b.Get("/agents/{id}", a.handleGetExternalAgent)
			b.Get("/agents/{id}/intents", a.handleExternalAgentIntents)

			b.Group(func(admin chi.Router) {
				admin.Use(a.requireAdmin)
				admin.Post("/register", a.handleRegisterExternalAgent)
				admin.Post("/agents/{id}/activate", a.handleActivateExternalAgent)
				admin.Post("/agents/{id}/deactivate", a.handleDeactivateExternalAgent)
				admin.Post("/agents/{id}/revoke", a.handleRevokeExternalAgent)
			})

			b.Post("/intents", a.handleSubmitIntent)
		})
	})

	return r
}

// metricsHandler combines the per-route HTTP metrics registry with the
// domain metrics registry behind a single endpoint, when both are wired;
// either can be supplied alone, and with neither wired /metrics is not
// mounted at all.
func metricsHandler(cfg Config) http.Handler {
	var gatherers prometheus.Gatherers
	if cfg.Observability != nil {
		gatherers = append(gatherers, cfg.Observability.Gatherer())
	}
	if cfg.Metrics != nil {
		gatherers = append(gatherers, cfg.Metrics.Gatherer())
	}
	if len(gatherers) == 0 {
		return nil
	}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

func (a *api) requireAdmin(next http.Handler) http.Handler {
	return a.cfg.Authenticator.RequireAdminKey(next)
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.cfg.Chain.CheckHealth(r.Context()); err != nil {
		writeError(w, err, a.now)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, a.now)
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg.Orchestrator.GetStats(), a.now)
}
