package redact

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/report"
	"github.com/wudi/redactkit/textmap"
)

// Options configures a Redactor. The zero value redacts whole operations
// under CenterPoint with no markers and no hooks.
type Options struct {
	Strategy Strategy

	// CharacterGranularity enables the glyph refiner for text runs that
	// partially overlap a region. Requires Letters.
	CharacterGranularity bool
	// Letters supplies ground-truth letter positions per page.
	Letters   textmap.Source
	Tolerance float64

	// RasterFallback substitutes rasterized images for kept spans of
	// rotated runs; see Refiner.
	RasterFallback bool
	RasterDPI      float64

	// DrawMarkers appends an opaque rectangle per region after removal,
	// as a visual acknowledgment layer on top of — never instead of —
	// structural removal.
	DrawMarkers bool
	MarkerColor [3]float64

	// Policy can override per-operation verdicts.
	Policy PolicyFunc

	// ShapedMetrics enables typesetting-based advances for embedded
	// font programs.
	ShapedMetrics bool

	Logger observability.Logger
	Tracer observability.Tracer
}

// Result is the outcome of one redaction pass over one page.
type Result struct {
	// Content is the rebuilt content stream.
	Content []byte
	// Kept holds the surviving operations in original relative order.
	Kept []contentstream.Operation
	// RemovedCount is the number of removed operations.
	RemovedCount int
	// RegionMatches counts matched operations per requested region.
	RegionMatches []int
	// Images holds raster-fallback PNGs the caller must register as
	// image XObject resources under their map keys.
	Images map[string][]byte
	// Report is the user-facing summary.
	Report *report.Report
}

// Redactor runs single-pass structural redaction over pages. It holds no
// per-page state; the same Redactor may be used for many pages, but
// concurrent calls against the same page must be serialized by the
// caller.
type Redactor struct {
	opts   Options
	log    observability.Logger
	tracer observability.Tracer
}

// New builds a Redactor.
func New(opts Options) *Redactor {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NopTracer()
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	return &Redactor{opts: opts, log: opts.Logger, tracer: opts.Tracer}
}

// RedactRegions processes all regions for the page in a single
// parse → filter/refine → rebuild pass. Rebuilding once per region would
// compound positional drift across passes, so the regions always travel
// together. A parse failure aborts the whole operation; the engine never
// degrades a structural-removal request into a visual-only one.
func (r *Redactor) RedactRegions(ctx context.Context, page *document.Page, regions []coords.Rect) (*Result, error) {
	ctx, span := r.tracer.StartSpan(ctx, "redact.page")
	defer span.Finish()
	span.SetTag("page", page.Index)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parseStart := time.Now()
	ops, err := contentstream.Parse(page.Content, contentstream.Config{
		Resources:     page.Resources,
		Logger:        r.log,
		ShapedMetrics: r.opts.ShapedMetrics,
	})
	parseTime := time.Since(parseStart)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var refiner *Refiner
	var refine RefineFunc
	if r.opts.CharacterGranularity {
		if r.opts.Letters == nil {
			return nil, fmt.Errorf("character granularity requested without a letter source")
		}
		letters, err := r.opts.Letters.Letters(ctx, page.Index)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("letter source: %w", err)
		}
		refiner = NewRefiner(letters, r.log)
		refiner.Tolerance = r.opts.Tolerance
		refiner.RasterFallback = r.opts.RasterFallback
		refiner.RasterDPI = r.opts.RasterDPI
		refine = refiner.Refine
	}

	filterStart := time.Now()
	fr := FilterWithOptions(ops, regions, r.opts.Strategy, FilterOptions{
		Policy:  r.opts.Policy,
		Refiner: refine,
		Logger:  r.log,
	})
	filterTime := time.Since(filterStart)

	kept := fr.Kept
	if r.opts.DrawMarkers {
		kept = append(kept, markerOps(regions, r.opts.MarkerColor)...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buildStart := time.Now()
	content, err := contentstream.Build(kept)
	buildTime := time.Since(buildStart)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	unsupported := 0
	for _, op := range ops {
		if op.Unsupported {
			unsupported++
		}
	}

	res := &Result{
		Content:       content,
		Kept:          kept,
		RemovedCount:  len(fr.Removed),
		RegionMatches: fr.RegionMatches,
		Report:        r.buildReport(page.Index, unsupported, fr, regions),
	}
	if refiner != nil {
		res.Images = refiner.Images
	}

	span.SetTag(observability.MetricParseTime, parseTime)
	span.SetTag(observability.MetricFilterTime, filterTime)
	span.SetTag(observability.MetricBuildTime, buildTime)
	r.log.Debug("redaction metrics",
		observability.Float64(observability.MetricParseTime, parseTime.Seconds()),
		observability.Float64(observability.MetricFilterTime, filterTime.Seconds()),
		observability.Float64(observability.MetricBuildTime, buildTime.Seconds()),
		observability.Int(observability.MetricOperationCount, len(ops)),
		observability.Int(observability.MetricRemovedCount, len(fr.Removed)),
		observability.Int(observability.MetricRefinedCount, fr.Refined),
		observability.Int(observability.MetricUnsupportedOps, unsupported))
	r.log.Info("page redacted",
		observability.Int("page", page.Index),
		observability.Int("removed", res.RemovedCount),
		observability.Int("refined", fr.Refined))
	return res, nil
}

// Apply runs RedactRegions and commits the rebuilt stream through the
// page mutator.
func (r *Redactor) Apply(ctx context.Context, page *document.Page, regions []coords.Rect) (*Result, error) {
	res, err := r.RedactRegions(ctx, page, regions)
	if err != nil {
		return nil, err
	}
	page.SetContent(res.Content)
	return res, nil
}

func (r *Redactor) buildReport(pageIndex, unsupported int, fr FilterResult, regions []coords.Rect) *report.Report {
	rep := &report.Report{
		Page:              pageIndex,
		RemovedOperations: len(fr.Removed),
		RefinedOperations: fr.Refined,
		UnsupportedSpans:  unsupported,
	}
	for _, op := range fr.Removed {
		if op.Text != nil && len(op.Text.Raw) > 0 {
			rep.RemovedText = append(rep.RemovedText, string(op.Text.Raw))
		}
	}
	for ri, region := range regions {
		rep.Regions = append(rep.Regions, report.RegionResult{
			Region:  region,
			Matched: fr.RegionMatches[ri],
		})
	}
	return rep
}

// markerOps draws one opaque filled rectangle per region, wrapped in
// q/Q so the fill color does not leak into surrounding state.
func markerOps(regions []coords.Rect, rgb [3]float64) []contentstream.Operation {
	num := func(v float64) contentstream.Operand { return contentstream.NumberOperand{Value: v} }
	var ops []contentstream.Operation
	for _, region := range regions {
		ops = append(ops,
			contentstream.Operation{Kind: contentstream.OpSaveState, Operator: "q", Operands: []contentstream.Operand{}},
			contentstream.Operation{Kind: contentstream.OpSetFillRGB, Operator: "rg",
				Operands: []contentstream.Operand{num(rgb[0]), num(rgb[1]), num(rgb[2])}},
			contentstream.Operation{Kind: contentstream.OpRectangle, Operator: "re",
				Operands: []contentstream.Operand{num(region.LLX), num(region.LLY), num(region.Width()), num(region.Height())}},
			contentstream.Operation{Kind: contentstream.OpFill, Operator: "f", Operands: []contentstream.Operand{}},
			contentstream.Operation{Kind: contentstream.OpRestoreState, Operator: "Q", Operands: []contentstream.Operand{}},
		)
	}
	return ops
}
