package strategy

import "math/big"

// LamportsPerSol is the conversion factor between the native SOL unit that
// strategy parameters are expressed in and the raw lamport amounts carried
// on Intent and AgentContext.
const LamportsPerSol = 1_000_000_000

func solToLamports(sol float64) *big.Int {
	lamports := new(big.Float).Mul(big.NewFloat(sol), big.NewFloat(LamportsPerSol))
	result, _ := lamports.Int(nil)
	return result
}

func lamportsToSol(lamports *big.Int) float64 {
	if lamports == nil {
		return 0
	}
	f := new(big.Float).SetInt(lamports)
	f.Quo(f, big.NewFloat(LamportsPerSol))
	result, _ := f.Float64()
	return result
}

func numberParam(params map[string]interface{}, key string, fallback float64) float64 {
	raw, ok := params[key]
	if !ok {
		return fallback
	}
	n, ok := asFloat(raw)
	if !ok {
		return fallback
	}
	return n
}

func intParam(params map[string]interface{}, key string, fallback int) int {
	return int(numberParam(params, key, float64(fallback)))
}

func stringListParam(params map[string]interface{}, key string) []string {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	if list, ok := raw.([]string); ok {
		return list
	}
	return nil
}
