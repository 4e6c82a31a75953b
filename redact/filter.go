package redact

import (
	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/observability"
)

// Decision is a policy hook's verdict for one operation/region pair.
type Decision int

const (
	// DecisionDefault defers to the strategy result.
	DecisionDefault Decision = iota
	// DecisionKeep vetoes a removal.
	DecisionKeep
	// DecisionRemove forces a removal.
	DecisionRemove
)

// PolicyFunc can override the strategy verdict for a candidate operation
// against one region. Generic and unsupported operations are never
// offered to the policy.
type PolicyFunc func(op *contentstream.Operation, region coords.Rect) Decision

// RefineFunc splits a partially covered operation into surviving
// replacements. It returns refined=false to fall back to whole-operation
// removal.
type RefineFunc func(op *contentstream.Operation, regions []coords.Rect) (replacements []contentstream.Operation, refined bool)

// FilterResult is the kept/removed partition of one filter pass.
type FilterResult struct {
	Kept    []contentstream.Operation
	Removed []contentstream.Operation
	// RegionMatches counts, per input region, the operations it matched.
	RegionMatches []int
	// Refined counts operations split at character granularity.
	Refined int
}

// FilterOptions carries the optional hooks of a filter pass.
type FilterOptions struct {
	Policy  PolicyFunc
	Refiner RefineFunc
	Logger  observability.Logger
}

// Filter partitions ops against the regions under the strategy, with no
// policy or refinement hooks. This is the composable low-level entry.
func Filter(ops []contentstream.Operation, regions []coords.Rect, strategy Strategy) FilterResult {
	return FilterWithOptions(ops, regions, strategy, FilterOptions{})
}

// FilterWithOptions partitions ops against the regions under the
// strategy. All regions are evaluated in this single pass; relative
// order of kept operations is preserved.
func FilterWithOptions(ops []contentstream.Operation, regions []coords.Rect, strategy Strategy, opts FilterOptions) FilterResult {
	res := FilterResult{RegionMatches: make([]int, len(regions))}
	for i := range ops {
		op := &ops[i]
		if !removable(op) {
			res.Kept = append(res.Kept, *op)
			continue
		}
		matched := matchRegions(op, regions, strategy, opts.Policy)
		if len(matched) == 0 {
			res.Kept = append(res.Kept, *op)
			continue
		}
		for _, ri := range matched {
			res.RegionMatches[ri]++
		}
		if opts.Refiner != nil && !fullyContainedByAny(op.BBox, regions, matched) {
			sel := make([]coords.Rect, len(matched))
			for j, ri := range matched {
				sel[j] = regions[ri]
			}
			if replacements, ok := opts.Refiner(op, sel); ok {
				res.Refined++
				res.Kept = append(res.Kept, replacements...)
				if len(replacements) == 0 || !sameContent(op, replacements) {
					res.Removed = append(res.Removed, *op)
				}
				continue
			}
		}
		res.Removed = append(res.Removed, *op)
	}
	return res
}

// removable reports whether an operation is a candidate for removal at
// all. Generic operations, unsupported spans, and operations with no
// computed bounds always survive.
func removable(op *contentstream.Operation) bool {
	if op.Unsupported || !op.HasBBox {
		return false
	}
	k := op.Kind
	return k.IsShowText() || k.IsPathConstruction() || k.IsPathPainting() || k == contentstream.OpXObject
}

func matchRegions(op *contentstream.Operation, regions []coords.Rect, strategy Strategy, policy PolicyFunc) []int {
	var matched []int
	for ri, region := range regions {
		covers := strategy.Covers(op.BBox, region)
		if policy != nil {
			switch policy(op, region) {
			case DecisionKeep:
				covers = false
			case DecisionRemove:
				covers = true
			}
		}
		if covers {
			matched = append(matched, ri)
		}
	}
	return matched
}

func fullyContainedByAny(box coords.Rect, regions []coords.Rect, matched []int) bool {
	for _, ri := range matched {
		if regions[ri].ContainsRect(box) {
			return true
		}
	}
	return false
}

// sameContent reports whether the refiner returned the operation intact
// (character pass decided nothing inside it actually falls in a region).
func sameContent(op *contentstream.Operation, replacements []contentstream.Operation) bool {
	if len(replacements) != 1 {
		return false
	}
	r := &replacements[0]
	return !r.Synthesized && r.Operator == op.Operator && r.Text == op.Text
}
