package strategy

import (
	"fmt"
	"sync"

	"github.com/nhb-labs/agentic-wallet/types"
)

func scheduledPayerDefinition() Definition {
	return Definition{
		Name:             "scheduled_payer",
		Label:            "Scheduled Payer",
		Description:      "Pays a single recipient a fixed amount, up to a capped count per day.",
		Category:         "payments",
		Icon:             "calendar",
		SupportedIntents: []types.IntentKind{types.IntentTransferSol, types.IntentQueryBalance},
		Params: []ParamField{
			{Key: "recipient", Label: "Recipient", Type: FieldString, Required: true},
			{Key: "amount", Label: "Amount (SOL)", Type: FieldNumber, Required: true},
			{Key: "maxPaymentsPerDay", Label: "Max payments per day", Type: FieldNumber, Required: false, Default: float64(1)},
		},
		DefaultParams: map[string]interface{}{"maxPaymentsPerDay": float64(1)},
		Factory: func(params map[string]interface{}) (Strategy, error) {
			return &scheduledPayer{
				recipient:         fmt.Sprint(params["recipient"]),
				amount:            numberParam(params, "amount", 0),
				maxPaymentsPerDay: intParam(params, "maxPaymentsPerDay", 1),
			}, nil
		},
	}
}

// scheduledPayer sends a fixed amount to a single recipient, capped at a
// configured count per day.
type scheduledPayer struct {
	mu sync.Mutex

	recipient         string
	amount            float64
	maxPaymentsPerDay int
	paidToday         int
}

func (s *scheduledPayer) Decide(ctx types.AgentContext) types.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paidToday >= s.maxPaymentsPerDay {
		return types.Decision{ShouldAct: false, Reasoning: "daily payment cap reached"}
	}
	if s.recipient == ctx.PublicKey {
		return types.Decision{ShouldAct: false, Reasoning: "Skipping self as recipient"}
	}
	s.paidToday++
	return types.Decision{
		ShouldAct: true,
		Intent: &types.Intent{
			Kind:      types.IntentTransferSol,
			Amount:    solToLamports(s.amount),
			Recipient: s.recipient,
		},
		Reasoning: fmt.Sprintf("scheduled payment of %.4f SOL to %s", s.amount, s.recipient),
	}
}

func (s *scheduledPayer) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paidToday = 0
}
