package byoa

import (
	"testing"

	"github.com/nhb-labs/agentic-wallet/apperr"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	r := NewRegistry()
	id, token, err := r.Register(Registration{Name: "bot-1", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	agent, err := r.AuthenticateToken(token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if agent.ID != id {
		t.Fatalf("expected authenticated agent id %s, got %s", id, agent.ID)
	}
}

func TestRegisterRemoteRequiresEndpoint(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Register(Registration{Name: "remote-bot", Kind: KindRemote, SupportedIntents: []string{"QUERY_BALANCE"}})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error for missing endpoint, got %v", err)
	}
}

func TestRegisterDuplicateNameAmongNonRevokedFails(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Register(Registration{Name: "dup", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err = r.Register(Registration{Name: "dup", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected duplicate-name rejection, got %v", err)
	}
}

func TestRegisterBeyondMaxAgentsIsCapacityError(t *testing.T) {
	r := NewRegistry(WithMaxAgents(1))
	_, _, err := r.Register(Registration{Name: "first", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, _, err = r.Register(Registration{Name: "second", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if !apperr.Is(err, apperr.CodeCapacity) {
		t.Fatalf("expected Capacity error, got %v", err)
	}
}

func TestRevokeThenAuthenticateFails(t *testing.T) {
	r := NewRegistry()
	id, token, err := r.Register(Registration{Name: "revokee", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Revoke(id); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := r.AuthenticateToken(token); !apperr.Is(err, apperr.CodeAuth) {
		t.Fatalf("expected Auth error after revocation, got %v", err)
	}
}

func TestBindWalletIsOneShot(t *testing.T) {
	r := NewRegistry()
	id, _, err := r.Register(Registration{Name: "bindable", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.BindWallet(id, "wallet-1", "pubkey-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := r.BindWallet(id, "wallet-2", "pubkey-2"); !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected a second bind to fail, got %v", err)
	}

	agent, err := r.GetAgent(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if agent.Status != StatusActive {
		t.Fatalf("expected agent to be active after binding, got %s", agent.Status)
	}
}

func TestActivateRequiresBoundWallet(t *testing.T) {
	r := NewRegistry()
	id, _, err := r.Register(Registration{Name: "unbound", Kind: KindLocal, SupportedIntents: []string{"QUERY_BALANCE"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Activate(id); !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected activation without a wallet to fail, got %v", err)
	}
}

func TestUnknownTokenIsAuth(t *testing.T) {
	r := NewRegistry()
	if _, err := r.AuthenticateToken("never-issued"); !apperr.Is(err, apperr.CodeAuth) {
		t.Fatalf("expected Auth error for unknown token, got %v", err)
	}
}
