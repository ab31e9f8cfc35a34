package byoa

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

// vault is the narrow slice of wallet.Vault the binder depends on.
type vault interface {
	CreateWallet(label string) (types.WalletInfo, error)
	DeleteWallet(id string) error
}

// Binder bridges the External Agent Registry and the Wallet Vault: it is
// the only component that creates a wallet on behalf of a BYOA agent.
type Binder struct {
	mu       sync.Mutex
	registry *Registry
	vault    vault
	logger   *slog.Logger

	byWallet map[string]string // walletId -> agentId
}

// NewBinder constructs a Binder over an existing registry and vault.
func NewBinder(registry *Registry, v vault, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		registry: registry,
		vault:    v,
		logger:   logger,
		byWallet: make(map[string]string),
	}
}

// BindNewWallet creates a fresh vault wallet for an unbound agent and binds
// it. If the registry rejects the bind (e.g. the agent became bound
// concurrently), the just-created wallet is deleted on a best-effort basis
// and the failure is logged.
func (b *Binder) BindNewWallet(agentID string) (walletID, publicKey string, err error) {
	agent, err := b.registry.GetAgent(agentID)
	if err != nil {
		return "", "", err
	}
	if agent.WalletID != "" {
		return "", "", apperr.Validation("agent %s already has a bound wallet", agentID)
	}

	info, err := b.vault.CreateWallet(fmt.Sprintf("byoa:%s", agent.Name))
	if err != nil {
		return "", "", err
	}

	if err := b.registry.BindWallet(agentID, info.ID, info.PublicKey); err != nil {
		if delErr := b.vault.DeleteWallet(info.ID); delErr != nil {
			b.logger.Error("failed to clean up orphaned wallet after bind failure",
				"walletId", info.ID, "agentId", agentID, "bindError", err, "deleteError", delErr)
		}
		return "", "", err
	}

	b.mu.Lock()
	b.byWallet[info.ID] = agentID
	b.mu.Unlock()

	return info.ID, info.PublicKey, nil
}

// AgentForWallet returns the agent id bound to a wallet, if any.
func (b *Binder) AgentForWallet(walletID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	agentID, ok := b.byWallet[walletID]
	return agentID, ok
}
