package execution

import (
	"fmt"

	"github.com/vnquant/advisor/internal/contracts"
)

// Deterministic execution and risk-control rules.
// SSOT: order-plan and stop/take-profit text generation lives here.
//
//   - default entry is a plain limit order
//   - a high spread proxy switches to a 3-step limit ladder
//   - SL/TP anchored at k*ATR14, k per risk profile

// spread proxy at or above this means poor microstructure
const ladderSpreadThreshold = 0.0025

// profileParams returns (k_sl, k_tp, max_loss_pct) for a risk profile.
// Unknown profiles fall back to moderate.
func profileParams(profile contracts.RiskProfile) (float64, float64, float64) {
	switch profile {
	case contracts.RiskConservative:
		return 1.0, 1.5, 0.005
	case contracts.RiskAggressive:
		return 1.5, 2.5, 0.015
	default:
		return 1.2, 2.0, 0.010
	}
}

// BuildOrderPlan produces the entry plan for one symbol. A hold action
// gets a reference-only plan with no ladder.
func BuildOrderPlan(action contracts.ActionType, lastClose, spreadProxy float64, tif contracts.TimeInForce) contracts.OrderPlan {
	if action == contracts.ActionHold {
		return contracts.OrderPlan{
			OrderType:   contracts.OrderTypeLimit,
			EntryRule:   fmt.Sprintf("HOLD: no new entry. Reference last_close=%.2f.", lastClose),
			TimeInForce: tif,
		}
	}

	if spreadProxy >= ladderSpreadThreshold {
		return contracts.OrderPlan{
			OrderType: contracts.OrderTypeLimit,
			EntryRule: fmt.Sprintf(
				"%s via LIMIT+LADDER: anchor at last_close=%.2f. "+
					"Place 3-step ladder below anchor (pct steps), sized by %% of symbol allocation.",
				upper(action), lastClose),
			Ladder: []contracts.LadderStep{
				{StepPct: -0.20, SizePctOfSymbol: 0.40},
				{StepPct: -0.50, SizePctOfSymbol: 0.35},
				{StepPct: -1.00, SizePctOfSymbol: 0.25},
			},
			TimeInForce: tif,
		}
	}

	return contracts.OrderPlan{
		OrderType: contracts.OrderTypeLimit,
		EntryRule: fmt.Sprintf(
			"%s via LIMIT: place near last_close=%.2f (consider slight improvement vs last print).",
			upper(action), lastClose),
		TimeInForce: tif,
	}
}

// BuildRiskControls produces textual SL/TP rules anchored at the entry
// reference price. A sell plan flips the stop above and target below.
// With no usable ATR the rules degrade to fixed-percent guidance.
func BuildRiskControls(action contracts.ActionType, entryRef, atr float64, profile contracts.RiskProfile) contracts.RiskControls {
	kSL, kTP, maxLoss := profileParams(profile)

	if action == contracts.ActionHold {
		return contracts.RiskControls{
			StopLossRule:        "HOLD: keep existing risk controls; re-evaluate on break of key levels.",
			TakeProfitRule:      "HOLD: consider trimming into strength; re-evaluate on new data.",
			MaxLossPctPortfolio: maxLoss,
		}
	}

	if atr <= 0 {
		return contracts.RiskControls{
			StopLossRule:        fmt.Sprintf("%s: ATR unavailable; use a fixed %% stop (profile=%s).", upper(action), profile),
			TakeProfitRule:      fmt.Sprintf("%s: ATR unavailable; use a fixed %% take-profit (profile=%s).", upper(action), profile),
			MaxLossPctPortfolio: maxLoss,
		}
	}

	if action == contracts.ActionBuy {
		sl := entryRef - kSL*atr
		tp := entryRef + kTP*atr
		return contracts.RiskControls{
			StopLossRule:        fmt.Sprintf("StopLoss: set at entry - %.1f*ATR14 => ~%.2f (ATR14=%.2f).", kSL, sl, atr),
			TakeProfitRule:      fmt.Sprintf("TakeProfit: set at entry + %.1f*ATR14 => ~%.2f (ATR14=%.2f).", kTP, tp, atr),
			MaxLossPctPortfolio: maxLoss,
		}
	}

	sl := entryRef + kSL*atr
	tp := entryRef - kTP*atr
	return contracts.RiskControls{
		StopLossRule:        fmt.Sprintf("StopLoss: for SELL, set at entry + %.1f*ATR14 => ~%.2f (ATR14=%.2f).", kSL, sl, atr),
		TakeProfitRule:      fmt.Sprintf("TakeProfit: for SELL, set at entry - %.1f*ATR14 => ~%.2f (ATR14=%.2f).", kTP, tp, atr),
		MaxLossPctPortfolio: maxLoss,
	}
}

// MaxLossForProfile exposes the per-profile portfolio loss cap
func MaxLossForProfile(profile contracts.RiskProfile) float64 {
	_, _, maxLoss := profileParams(profile)
	return maxLoss
}

func upper(a contracts.ActionType) string {
	switch a {
	case contracts.ActionBuy:
		return "BUY"
	case contracts.ActionSell:
		return "SELL"
	default:
		return "HOLD"
	}
}
