package scripting

import (
	"context"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/redact"
)

// OpInfo is the operation metadata a policy script receives.
type OpInfo struct {
	Operator string     `json:"operator"`
	Text     string     `json:"text"`
	BBox     [4]float64 `json:"bbox"`   // llx, lly, urx, ury
	Region   [4]float64 `json:"region"` // the region under test
}

// Policy wraps a script that defines a global function
//
//	function decide(op) { return "keep" | "remove" | ""; }
//
// consulted for every candidate operation/region pair. Any other return
// value, or a script error, defers to the strategy verdict — a broken
// policy must never weaken a removal. Invocations go through the engine's
// interrupt path, so a decide function that never returns is stopped
// when the redaction context expires.
type Policy struct {
	mu  sync.Mutex
	eng *GojaEngine
	fn  goja.Callable
	log observability.Logger
}

// NewPolicy compiles the script and resolves its decide function.
func NewPolicy(script string, log observability.Logger) (*Policy, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	eng := NewEngine()
	eng.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if _, err := eng.Execute(context.Background(), script); err != nil {
		return nil, fmt.Errorf("policy script: %w", err)
	}
	fn, ok := goja.AssertFunction(eng.vm.Get("decide"))
	if !ok {
		return nil, fmt.Errorf("policy script does not define a decide function")
	}
	return &Policy{eng: eng, fn: fn, log: log}, nil
}

// Func adapts the policy to the filter's hook signature, bound to the
// redaction context. The internal lock serializes pages that share one
// policy.
func (p *Policy) Func(ctx context.Context) redact.PolicyFunc {
	return func(op *contentstream.Operation, region coords.Rect) redact.Decision {
		info := OpInfo{
			Operator: op.Operator,
			BBox:     [4]float64{op.BBox.LLX, op.BBox.LLY, op.BBox.URX, op.BBox.URY},
			Region:   [4]float64{region.LLX, region.LLY, region.URX, region.URY},
		}
		if op.Text != nil {
			info.Text = string(op.Text.Raw)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		val, err := p.eng.Call(ctx, p.fn, p.eng.vm.ToValue(info))
		if err != nil {
			p.log.Warn("policy script failed, deferring to strategy",
				observability.Error("err", err))
			return redact.DecisionDefault
		}
		switch val.String() {
		case "keep":
			return redact.DecisionKeep
		case "remove":
			return redact.DecisionRemove
		default:
			return redact.DecisionDefault
		}
	}
}
