package strategy

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/nhb-labs/agentic-wallet/types"
)

func distributorDefinition() Definition {
	return Definition{
		Name:             "distributor",
		Label:            "Distributor",
		Description:      "Cycles a list of recipients, sending a fixed amount per cycle behind a probability gate.",
		Category:         "payments",
		Icon:             "send",
		SupportedIntents: []types.IntentKind{types.IntentTransferSol, types.IntentQueryBalance},
		Params: []ParamField{
			{Key: "recipients", Label: "Recipients", Type: FieldStringList, Required: true},
			{Key: "amount", Label: "Amount per cycle (SOL)", Type: FieldNumber, Required: true},
			{Key: "distributionProbability", Label: "Probability of acting", Type: FieldNumber, Required: false, Default: float64(0.3), Min: floatPtr(0), Max: floatPtr(1)},
			{Key: "maxTransfersPerDay", Label: "Max transfers per day", Type: FieldNumber, Required: false, Default: float64(10)},
		},
		DefaultParams: map[string]interface{}{
			"distributionProbability": float64(0.3),
			"maxTransfersPerDay":      float64(10),
		},
		Factory: func(params map[string]interface{}) (Strategy, error) {
			return &distributor{
				recipients:  stringListParam(params, "recipients"),
				amount:      numberParam(params, "amount", 0.1),
				probability: numberParam(params, "distributionProbability", 0.3),
				maxPerDay:   intParam(params, "maxTransfersPerDay", 10),
				rng:         rand.New(rand.NewSource(1)),
			}, nil
		},
	}
}

// distributor cycles through recipients in order, skipping any cycle whose
// recipient is the agent's own wallet.
type distributor struct {
	mu sync.Mutex

	recipients  []string
	amount      float64
	probability float64
	maxPerDay   int

	index     int
	sentToday int
	rng       *rand.Rand
}

func (d *distributor) Decide(ctx types.AgentContext) types.Decision {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.recipients) == 0 {
		return types.Decision{ShouldAct: false, Reasoning: "no recipients configured"}
	}
	if d.sentToday >= d.maxPerDay {
		return types.Decision{ShouldAct: false, Reasoning: "daily transfer cap reached"}
	}

	recipient := d.recipients[d.index%len(d.recipients)]
	d.index++

	if recipient == ctx.PublicKey {
		return types.Decision{ShouldAct: false, Reasoning: "Skipping self as recipient"}
	}
	if d.rng.Float64() >= d.probability {
		return types.Decision{ShouldAct: false, Reasoning: "probability gate did not trigger this cycle"}
	}

	d.sentToday++
	return types.Decision{
		ShouldAct: true,
		Intent: &types.Intent{
			Kind:      types.IntentTransferSol,
			Amount:    solToLamports(d.amount),
			Recipient: recipient,
		},
		Reasoning: fmt.Sprintf("distributing %.4f SOL to %s", d.amount, recipient),
	}
}

func (d *distributor) ResetDaily() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sentToday = 0
}

func floatPtr(f float64) *float64 { return &f }
