// Package strategy holds the declarative catalog of strategy kinds
// built-in agents can run, their parameter schemas, and the built-in
// strategy implementations themselves.
package strategy

import (
	"sort"
	"sync"

	"github.com/nhb-labs/agentic-wallet/apperr"
	"github.com/nhb-labs/agentic-wallet/types"
)

// Strategy is the decision function a managed agent invokes once per cycle.
type Strategy interface {
	// Decide inspects the assembled chain context and returns whether the
	// agent should act this cycle. It must not perform I/O itself; chain
	// reads happen before Decide is called and are passed in via ctx.
	Decide(ctx types.AgentContext) types.Decision

	// ResetDaily is invoked by the scheduler's midnight tick so
	// per-strategy daily counters (e.g. airdrops issued today) start over.
	ResetDaily()
}

// Factory constructs a Strategy instance from normalized parameters.
type Factory func(params map[string]interface{}) (Strategy, error)

// Definition is a registered strategy kind: its metadata, parameter schema,
// and the factory used to construct instances of it.
type Definition struct {
	Name             string
	Label            string
	Description      string
	Category         string
	Icon             string
	SupportedIntents []types.IntentKind
	Params           []ParamField
	DefaultParams    map[string]interface{}
	Factory          Factory
}

// DTO is the JSON-serialisable form of a Definition: everything except the
// factory function.
type DTO struct {
	Name             string              `json:"name"`
	Label            string              `json:"label"`
	Description      string              `json:"description"`
	Category         string              `json:"category"`
	Icon             string              `json:"icon"`
	SupportedIntents []types.IntentKind  `json:"supportedIntents"`
	Params           []ParamField        `json:"params"`
	DefaultParams    map[string]interface{} `json:"defaultParams"`
}

// Registry is the process-global catalog of strategy kinds. It is
// read-mostly after boot: all built-ins are registered once at startup,
// after which lookups vastly outnumber writes.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a strategy definition to the catalog.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return apperr.Validation("strategy definition requires a name")
	}
	if def.Factory == nil {
		return apperr.Validation("strategy %q requires a factory", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return apperr.Validation("strategy %q is already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns the definition for a strategy kind.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, apperr.NotFound("strategy %q", name)
	}
	return def, nil
}

// Has reports whether a strategy kind is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// List returns every registered definition, sorted by name for stable
// output.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateParams applies a strategy's schema to the supplied params,
// coercing types and filling defaults.
func (r *Registry) ValidateParams(name string, params map[string]interface{}) (map[string]interface{}, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return validateParams(def.Params, params)
}

// New constructs a Strategy instance for the given kind, validating and
// normalizing params first.
func (r *Registry) New(name string, params map[string]interface{}) (Strategy, error) {
	def, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	normalized, err := validateParams(def.Params, params)
	if err != nil {
		return nil, err
	}
	return def.Factory(normalized)
}

// ToDTO returns the JSON-serialisable form of one definition.
func (r *Registry) ToDTO(name string) (DTO, error) {
	def, err := r.Get(name)
	if err != nil {
		return DTO{}, err
	}
	return toDTO(def), nil
}

// ListDTOs returns the JSON-serialisable form of every definition.
func (r *Registry) ListDTOs() []DTO {
	defs := r.List()
	out := make([]DTO, 0, len(defs))
	for _, def := range defs {
		out = append(out, toDTO(def))
	}
	return out
}

func toDTO(def Definition) DTO {
	return DTO{
		Name:             def.Name,
		Label:            def.Label,
		Description:      def.Description,
		Category:         def.Category,
		Icon:             def.Icon,
		SupportedIntents: def.SupportedIntents,
		Params:           def.Params,
		DefaultParams:    def.DefaultParams,
	}
}

// RegisterBuiltins registers the platform's four built-in strategy kinds.
func RegisterBuiltins(r *Registry) error {
	for _, def := range []Definition{
		accumulatorDefinition(),
		distributorDefinition(),
		balanceGuardDefinition(),
		scheduledPayerDefinition(),
	} {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}
