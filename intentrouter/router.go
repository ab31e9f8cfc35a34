// Package intentrouter implements the Intent Router: the gateway between
// external HTTP intents and the execution substrate. It authenticates a
// bearer control token against the External Agent Registry, rate-limits
// per agent, checks the intent against the agent's declared capability
// set, and dispatches to the same wallet-vault/chain-client pipeline the
// Orchestrator uses for built-in agents.
package intentrouter

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/byoa"
	"github.com/nhb-labs/agentic-wallet/chain"
	"github.com/nhb-labs/agentic-wallet/eventbus"
	"github.com/nhb-labs/agentic-wallet/history"
	"github.com/nhb-labs/agentic-wallet/types"
)

const defaultRateLimitPerMinute = 30

// vaultAPI is the narrow slice of wallet.Vault the router depends on — the
// same shape the Orchestrator depends on, since both drive the same
// sign-and-send pipeline.
type vaultAPI interface {
	SignTransaction(id string, tx types.UnsignedTransaction) (types.SignedTransaction, error)
	ValidateIntent(id string, intent types.Intent, currentBalance, feeReserve *big.Int) error
	RecordTransfer(id string) error
}

// Router is the Intent Router. One Router serves every registered external
// agent; its rate limiter keys buckets by agent id.
type Router struct {
	registry *byoa.Registry
	vault    vaultAPI
	client   chain.Client
	bus      *eventbus.Bus
	history  *history.Store
	limiter  *rateLimiter
	sendOpts chain.SendOptions
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithRateLimitPerMinute overrides the default per-agent token-bucket size
// and per-minute refill of 30 intents.
func WithRateLimitPerMinute(n int) Option {
	return func(r *Router) { r.limiter = newRateLimiter(n, r.now) }
}

// WithSendOptions overrides the chain client's retry/confirmation options.
func WithSendOptions(opts chain.SendOptions) Option { return func(r *Router) { r.sendOpts = opts } }

// WithLogger overrides the router's structured logger.
func WithLogger(logger *slog.Logger) Option { return func(r *Router) { r.logger = logger } }

// WithClock overrides the router's notion of "now", for tests.
func WithClock(now func() time.Time) Option { return func(r *Router) { r.now = now } }

// NewRouter constructs an Intent Router over an existing registry, vault,
// chain client, event bus, and shared history store.
func NewRouter(registry *byoa.Registry, v vaultAPI, client chain.Client, bus *eventbus.Bus, historyStore *history.Store, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		vault:    v,
		client:   client,
		bus:      bus,
		history:  historyStore,
		sendOpts: chain.SendOptions{MaxRetries: 3, ConfirmationTimeout: 30 * time.Second},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limiter == nil {
		r.limiter = newRateLimiter(defaultRateLimitPerMinute, r.now)
	}
	return r
}

// SubmitIntent runs the full authenticate → authorize → rate-limit →
// capability-check → dispatch pipeline and always returns an IntentResult,
// never a transport-level error for a rejection.
func (r *Router) SubmitIntent(ctx context.Context, rawToken string, ext types.ExternalIntent) (types.IntentResult, error) {
	agent, err := r.registry.AuthenticateToken(rawToken)
	if err != nil {
		return types.IntentResult{}, err
	}

	intentID := uuid.NewString()

	reject := func(rejErr error) (types.IntentResult, error) {
		r.recordHistory(intentID, agent.ID, ext, types.OutcomeRejected, nil, rejErr)
		return types.IntentResult{
			IntentID:        intentID,
			Status:          types.OutcomeRejected,
			Type:            ext.Type,
			AgentID:         agent.ID,
			WalletPublicKey: agent.WalletPublicKey,
			Error:           rejErr.Error(),
			ExecutedAt:      r.now().UnixMilli(),
		}, nil
	}

	if agent.Status != byoa.StatusActive {
		return reject(apperr.Validation("agent %s is not active", agent.ID))
	}
	if agent.WalletID == "" {
		return reject(apperr.Validation("agent %s has no bound wallet", agent.ID))
	}
	if !r.limiter.allow(agent.ID) {
		return reject(apperr.RateLimited("rate limit exceeded for agent %s", agent.ID))
	}
	if !agent.SupportsIntent(ext.Type) {
		return reject(apperr.Validation("agent %s does not support intent type %q", agent.ID, ext.Type))
	}

	intent := types.Intent{
		ID:        intentID,
		AgentID:   agent.ID,
		Timestamp: r.now().UnixMilli(),
		Amount:    ext.Amount,
		Recipient: ext.Recipient,
		Mint:      ext.Mint,
		Action:    ext.Action,
		Params:    ext.Params,
	}

	var result map[string]interface{}
	var execErr error
	switch ext.Type {
	case string(types.HistoryRequestAirdrop):
		intent.Kind = types.IntentAirdrop
		result, execErr = r.dispatchAirdrop(ctx, agent, intent)
	case string(types.HistoryTransferSol):
		intent.Kind = types.IntentTransferSol
		result, execErr = r.dispatchTransferSol(ctx, agent, intent)
	case string(types.HistoryTransferToken):
		intent.Kind = types.IntentTransferToken
		result, execErr = r.dispatchTransferToken(ctx, agent, intent)
	case string(types.HistoryQueryBalance):
		intent.Kind = types.IntentQueryBalance
		result, execErr = r.dispatchQueryBalance(ctx, agent)
	case string(types.HistoryAutonomous):
		intent.Kind = types.IntentAutonomous
		result, execErr = r.dispatchAutonomous(ctx, agent, intent)
	default:
		return reject(apperr.Validation("unrecognized intent type %q", ext.Type))
	}

	if execErr != nil {
		return reject(execErr)
	}

	r.recordHistory(intentID, agent.ID, ext, types.OutcomeExecuted, result, nil)
	r.bus.Emit(types.SystemEvent{
		Kind:      types.EventAgentAction,
		AgentID:   agent.ID,
		Timestamp: r.now().UnixMilli(),
		Data:      map[string]interface{}{"action": "byoa_intent:" + ext.Type},
	})

	return types.IntentResult{
		IntentID:        intentID,
		Status:          types.OutcomeExecuted,
		Type:            ext.Type,
		AgentID:         agent.ID,
		WalletPublicKey: agent.WalletPublicKey,
		Result:          result,
		ExecutedAt:      r.now().UnixMilli(),
	}, nil
}

func (r *Router) recordHistory(intentID, agentID string, ext types.ExternalIntent, outcome types.IntentOutcome, result map[string]interface{}, err error) {
	rec := types.IntentHistoryRecord{
		IntentID:  intentID,
		AgentID:   agentID,
		Type:      types.IntentHistoryType(ext.Type),
		Status:    outcome,
		Result:    result,
		CreatedAt: r.now().UnixMilli(),
	}
	if ext.Type == string(types.HistoryAutonomous) {
		params := map[string]interface{}{"action": ext.Action}
		for k, v := range ext.Params {
			params[k] = v
		}
		rec.Params = params
	}
	if err != nil {
		rec.Error = err.Error()
	}
	r.history.Append(rec)
}
