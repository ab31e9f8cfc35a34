package strategy

import (
	"testing"

	"github.com/nhb-labs/agentic-wallet/apperr"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	return r
}

func TestRegisterBuiltinsAreDiscoverable(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{"accumulator", "distributor", "balance_guard", "scheduled_payer"} {
		if !r.Has(name) {
			t.Fatalf("expected %q to be registered", name)
		}
	}
	if len(r.List()) != 4 {
		t.Fatalf("expected 4 registered strategies, got %d", len(r.List()))
	}
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Register(Definition{Name: "accumulator", Factory: func(map[string]interface{}) (Strategy, error) { return nil, nil }})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}
}

func TestValidateParamsRejectsMissingRequired(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.ValidateParams("accumulator", map[string]interface{}{"minBalance": 0.5})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("expected validation error for missing targetBalance/airdropAmount, got %v", err)
	}
}

func TestValidateParamsFillsDefaults(t *testing.T) {
	r := newTestRegistry(t)
	params, err := r.ValidateParams("accumulator", map[string]interface{}{
		"targetBalance": 1.0,
		"minBalance":    0.5,
		"airdropAmount": 1.0,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if params["maxAirdropsPerDay"] != float64(5) {
		t.Fatalf("expected default maxAirdropsPerDay of 5, got %v", params["maxAirdropsPerDay"])
	}
}

func TestValidateParamsPreservesUnknownFields(t *testing.T) {
	r := newTestRegistry(t)
	params, err := r.ValidateParams("accumulator", map[string]interface{}{
		"targetBalance": 1.0,
		"minBalance":    0.5,
		"airdropAmount": 1.0,
		"extraField":    "kept",
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if params["extraField"] != "kept" {
		t.Fatalf("expected unknown field to be preserved")
	}
}

func TestToDTOAndListDTOsOmitFactory(t *testing.T) {
	r := newTestRegistry(t)
	dto, err := r.ToDTO("distributor")
	if err != nil {
		t.Fatalf("to dto: %v", err)
	}
	if dto.Name != "distributor" {
		t.Fatalf("expected distributor DTO, got %q", dto.Name)
	}
	if len(r.ListDTOs()) != 4 {
		t.Fatalf("expected 4 DTOs")
	}
}

func TestGetUnknownStrategyIsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Get("nonexistent"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
