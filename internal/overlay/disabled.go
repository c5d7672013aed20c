package overlay

import (
	"context"

	"github.com/vnquant/advisor/internal/contracts"
)

// Notes text used whenever no overlay runs; the plan itself is always
// produced by the deterministic rule pipeline.
const DisabledNotes = "LLM disabled: plan được tạo bằng rulebase + optimizer deterministic. " +
	"Hãy kiểm tra lại mức rủi ro/khả năng khớp lệnh trước khi đặt lệnh."

// Disabled is the default overlay: no external calls, template text only
type Disabled struct{}

// NewDisabled creates the no-op overlay
func NewDisabled() *Disabled {
	return &Disabled{}
}

func (d *Disabled) Enabled() bool {
	return false
}

// RenderTextFields returns the deterministic template. Callers normally
// skip it when Enabled() is false, but the template is also the fallback
// when a remote overlay fails mid-run.
func (d *Disabled) RenderTextFields(_ context.Context, facts *contracts.FactsPayload) (*contracts.OverlayText, error) {
	return TemplateText(facts), nil
}

// TemplateText is the rule-based fallback rendering: it echoes each
// action's own entry rule and attaches generic invalidation conditions.
func TemplateText(facts *contracts.FactsPayload) *contracts.OverlayText {
	perSymbol := make(map[string]contracts.OverlaySymbolText, len(facts.RecommendedActions))
	for _, a := range facts.RecommendedActions {
		perSymbol[a.Symbol] = contracts.OverlaySymbolText{
			EntryRule: a.OrderPlan.EntryRule,
			Invalidation: []string{
				"Nếu biến động (vol) tăng mạnh và giá đi ngược thesis.",
				"Nếu tin tức/sentiment đảo chiều tiêu cực trong 48-72h.",
			},
		}
	}
	return &contracts.OverlayText{
		Notes:     "LLM disabled: dùng rule-based templates. Vui lòng kiểm tra lại trước khi đặt lệnh.",
		PerSymbol: perSymbol,
	}
}

var _ contracts.TextOverlay = (*Disabled)(nil)
