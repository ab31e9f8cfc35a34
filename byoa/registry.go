// Package byoa implements the External Agent Registry and Wallet Binder:
// the "bring your own agent" surface that lets externally-run agents
// register, bind a wallet, and authenticate with a bearer control token.
package byoa

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhb-labs/agentic-wallet/apperr"
	appcrypto "github.com/nhb-labs/agentic-wallet/crypto"
)

// Kind is whether an external agent runs locally (in-process callback) or
// remotely (over HTTP to an endpoint the agent operator controls).
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Status is the lifecycle state of an external agent.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusRevoked    Status = "revoked"
)

// Agent is the authoritative record of one external agent.
type Agent struct {
	ID               string
	Name             string
	Kind             Kind
	Endpoint         string
	SupportedIntents []string
	Status           Status
	WalletID         string
	WalletPublicKey  string
	CreatedAt        int64
	LastActiveAt     int64

	controlTokenHash [32]byte
}

// Registration is the input to Register.
type Registration struct {
	Name             string
	Kind             Kind
	Endpoint         string
	SupportedIntents []string
}

// Registry holds every external agent and the reverse index from hashed
// control token to agent id.
type Registry struct {
	mu        sync.Mutex
	agents    map[string]*Agent
	byToken   map[[32]byte]string
	maxAgents int
	now       func() time.Time
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithMaxAgents overrides the default agent capacity.
func WithMaxAgents(n int) Option { return func(r *Registry) { r.maxAgents = n } }

// WithClock overrides the registry's notion of "now", for tests.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// NewRegistry constructs an empty external-agent registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		agents:    make(map[string]*Agent),
		byToken:   make(map[[32]byte]string),
		maxAgents: 100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates a registration, generates a 256-bit control token,
// and stores only its SHA-256 digest. The raw token is returned exactly
// once and is never retrievable again.
func (r *Registry) Register(reg Registration) (agentID string, rawToken string, err error) {
	if len(reg.Name) < 1 || len(reg.Name) > 100 {
		return "", "", apperr.Validation("agent name must be 1-100 characters")
	}
	if reg.Kind == KindRemote && reg.Endpoint == "" {
		return "", "", apperr.Validation("remote agents require an endpoint")
	}
	if len(reg.SupportedIntents) == 0 {
		return "", "", apperr.Validation("supportedIntents must be non-empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.agents) >= r.maxAgents {
		return "", "", apperr.Capacity("max external agents (%d) reached", r.maxAgents)
	}
	for _, existing := range r.agents {
		if existing.Status != StatusRevoked && existing.Name == reg.Name {
			return "", "", apperr.Validation("agent name %q is already in use", reg.Name)
		}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", apperr.Crypto(err, "generate control token")
	}
	rawToken = hex.EncodeToString(raw)
	hash := sha256.Sum256([]byte(rawToken))

	agent := &Agent{
		ID:               uuid.NewString(),
		Name:             reg.Name,
		Kind:             reg.Kind,
		Endpoint:         reg.Endpoint,
		SupportedIntents: append([]string(nil), reg.SupportedIntents...),
		Status:           StatusRegistered,
		CreatedAt:        r.now().UnixMilli(),
		controlTokenHash: hash,
	}
	r.agents[agent.ID] = agent
	r.byToken[hash] = agent.ID

	return agent.ID, rawToken, nil
}

// BindWallet attaches a wallet to an agent exactly once, then transitions
// the agent to active.
func (r *Registry) BindWallet(agentID, walletID, publicKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return apperr.NotFound("external agent %s", agentID)
	}
	if agent.WalletID != "" {
		return apperr.Validation("agent %s already has a bound wallet", agentID)
	}
	agent.WalletID = walletID
	agent.WalletPublicKey = publicKey
	agent.Status = StatusActive
	return nil
}

// AuthenticateToken hashes the supplied raw token and looks up the owning
// agent. Revoked agents are rejected. Hashing the token before any lookup
// means the only secret-dependent step is the one-way digest; the
// subsequent map lookup never branches on raw token bytes.
func (r *Registry) AuthenticateToken(rawToken string) (*Agent, error) {
	hash := sha256.Sum256([]byte(rawToken))

	r.mu.Lock()
	defer r.mu.Unlock()
	agentID, ok := r.byToken[hash]
	if !ok {
		return nil, apperr.Auth("unknown control token")
	}
	agent := r.agents[agentID]
	if agent.Status == StatusRevoked {
		return nil, apperr.Auth("agent %s has been revoked", agentID)
	}
	if !appcrypto.ConstantTimeEqual(hash[:], agent.controlTokenHash[:]) {
		return nil, apperr.Auth("token hash mismatch")
	}
	agent.LastActiveAt = r.now().UnixMilli()
	return cloneAgent(agent), nil
}

// Deactivate transitions an agent to inactive.
func (r *Registry) Deactivate(agentID string) error {
	return r.transition(agentID, StatusInactive, false)
}

// Activate transitions an agent to active; requires a bound wallet.
func (r *Registry) Activate(agentID string) error {
	return r.transition(agentID, StatusActive, true)
}

// Revoke terminally revokes an agent and evicts its token from the reverse
// index so a leaked control token can never authenticate again.
func (r *Registry) Revoke(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return apperr.NotFound("external agent %s", agentID)
	}
	agent.Status = StatusRevoked
	delete(r.byToken, agent.controlTokenHash)
	return nil
}

func (r *Registry) transition(agentID string, status Status, requireWallet bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return apperr.NotFound("external agent %s", agentID)
	}
	if agent.Status == StatusRevoked {
		return apperr.Validation("agent %s is revoked", agentID)
	}
	if requireWallet && agent.WalletID == "" {
		return apperr.Validation("agent %s has no bound wallet", agentID)
	}
	agent.Status = status
	return nil
}

// GetAgent returns one agent's public record.
func (r *Registry) GetAgent(agentID string) (*Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return nil, apperr.NotFound("external agent %s", agentID)
	}
	return cloneAgent(agent), nil
}

// GetAll returns every registered agent.
func (r *Registry) GetAll() []*Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, cloneAgent(agent))
	}
	return out
}

// GetActive returns every agent currently in the active state.
func (r *Registry) GetActive() []*Agent {
	all := r.GetAll()
	out := all[:0]
	for _, agent := range all {
		if agent.Status == StatusActive {
			out = append(out, agent)
		}
	}
	return out
}

func cloneAgent(a *Agent) *Agent {
	clone := *a
	clone.SupportedIntents = append([]string(nil), a.SupportedIntents...)
	return &clone
}

// SupportsIntent reports whether an agent declared support for a given
// intent type string.
func (a *Agent) SupportsIntent(intent string) bool {
	for _, supported := range a.SupportedIntents {
		if supported == intent {
			return true
		}
	}
	return false
}
