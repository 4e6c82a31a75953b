package redact

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/wudi/redactkit/contentstream"
	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
	"github.com/wudi/redactkit/observability"
	"github.com/wudi/redactkit/textmap"
)

func testPage(content string) *document.Page {
	return &document.Page{
		Index:   0,
		Width:   612,
		Height:  792,
		Content: []byte(content),
	}
}

func TestRedactRemovesSecretKeepsPublic(t *testing.T) {
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj ET BT /F1 12 Tf 100 600 Td (public) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Content)
	if strings.Contains(out, "SECRET") {
		t.Errorf("secret text survived: %q", out)
	}
	if !strings.Contains(out, "public") {
		t.Errorf("public text lost: %q", out)
	}
	if res.RemovedCount != 1 {
		t.Errorf("removed = %d", res.RemovedCount)
	}
	if res.Report == nil || len(res.Report.RemovedText) != 1 || res.Report.RemovedText[0] != "SECRET" {
		t.Errorf("report = %+v", res.Report)
	}
	// The original page is untouched until Apply.
	if !strings.Contains(string(page.Content), "SECRET") {
		t.Error("RedactRegions must not mutate the page")
	}
}

func TestRedactedOutputReparses(t *testing.T) {
	page := testPage("q 0.5 0 0 0.5 0 0 cm BT /F1 12 Tf 200 1400 Td (SECRET) Tj ET Q BT /F1 10 Tf 50 50 Td (ok) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	// The scaled run lands at (100,700)-(118,706) on the page.
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)})
	if err != nil {
		t.Fatal(err)
	}
	ops, err := contentstream.Parse(res.Content, contentstream.Config{})
	if err != nil {
		t.Fatalf("rebuilt stream does not parse: %v", err)
	}
	for _, op := range ops {
		if op.Text != nil && string(op.Text.Raw) == "SECRET" {
			t.Error("secret text survived the rebuild")
		}
	}
}

func TestRedactKeepsRunOutsideRegion(t *testing.T) {
	page := testPage("BT /F1 12 Tf 50 100 Td (KEEP) Tj ET BT /F1 12 Tf 250 100 Td (DROP) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(200, 90, 100, 30)})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Content)
	if strings.Contains(out, "DROP") {
		t.Errorf("covered run survived: %q", out)
	}
	// The kept run and its font/position operators remain.
	for _, want := range []string{"(KEEP)", "/F1 12 Tf", "50 100 Td"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestRedactSinglePassMatchesUnionOfRegions(t *testing.T) {
	const src = "BT /F1 12 Tf 100 700 Td (alpha) Tj ET " +
		"BT /F1 12 Tf 100 600 Td (beta) Tj ET " +
		"BT /F1 12 Tf 100 500 Td (gamma) Tj ET"
	regions := []coords.Rect{
		coords.XYWH(95, 695, 60, 20),
		coords.XYWH(95, 595, 60, 20),
	}
	r := New(Options{Strategy: AnyOverlap})

	removedTexts := func(res *Result) map[string]bool {
		out := make(map[string]bool)
		for _, txt := range res.Report.RemovedText {
			out[txt] = true
		}
		return out
	}

	both, err := r.RedactRegions(context.Background(), testPage(src), regions)
	if err != nil {
		t.Fatal(err)
	}
	union := make(map[string]bool)
	for _, region := range regions {
		res, err := r.RedactRegions(context.Background(), testPage(src), []coords.Rect{region})
		if err != nil {
			t.Fatal(err)
		}
		for txt := range removedTexts(res) {
			union[txt] = true
		}
	}
	got := removedTexts(both)
	if len(got) != len(union) {
		t.Fatalf("single pass removed %v, union %v", got, union)
	}
	for txt := range union {
		if !got[txt] {
			t.Errorf("single pass missing %q", txt)
		}
	}
}

func TestRedactMultipleRegionsOnePass(t *testing.T) {
	page := testPage("BT /F1 12 Tf 100 700 Td (one) Tj ET BT /F1 12 Tf 100 600 Td (two) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	regions := []coords.Rect{
		coords.XYWH(95, 695, 40, 20),
		coords.XYWH(95, 595, 40, 20),
	}
	res, err := r.RedactRegions(context.Background(), page, regions)
	if err != nil {
		t.Fatal(err)
	}
	if res.RemovedCount != 2 {
		t.Errorf("removed = %d", res.RemovedCount)
	}
	if res.RegionMatches[0] != 1 || res.RegionMatches[1] != 1 {
		t.Errorf("matches = %v", res.RegionMatches)
	}
	if len(res.Report.Regions) != 2 {
		t.Errorf("report regions = %+v", res.Report.Regions)
	}
}

func TestRedactMarkersAppendedAfterRemoval(t *testing.T) {
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj ET")
	r := New(Options{Strategy: AnyOverlap, DrawMarkers: true})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Content)
	if strings.Contains(out, "SECRET") {
		t.Error("marker must supplement removal, not replace it")
	}
	if !strings.Contains(out, "95 695 60 20 re") || !strings.Contains(out, " rg") {
		t.Errorf("marker rectangle missing: %q", out)
	}
}

func TestRedactParseFailureIsFatal(t *testing.T) {
	page := testPage("BT (unterminated Tj")
	r := New(Options{Strategy: AnyOverlap, DrawMarkers: true})
	_, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(0, 0, 612, 792)})
	if !contentstream.IsParseError(err) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	// No visual-only fallback: the page stays untouched.
	if string(page.Content) != "BT (unterminated Tj" {
		t.Error("page mutated despite parse failure")
	}
}

func TestRedactHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(Options{})
	if _, err := r.RedactRegions(ctx, testPage("BT ET"), nil); err == nil {
		t.Fatal("expected context error")
	}
}

func TestApplyCommitsContent(t *testing.T) {
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	res, err := r.Apply(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)})
	if err != nil {
		t.Fatal(err)
	}
	if string(page.Content) != string(res.Content) {
		t.Error("Apply must commit the rebuilt stream")
	}
	if strings.Contains(string(page.Content), "SECRET") {
		t.Error("secret text survived Apply")
	}
}

func TestRedactCharacterGranularity(t *testing.T) {
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj ET")
	letters := lettersFor("SECRET", 100, 700, 6, 12, 0, 0)
	r := New(Options{
		Strategy:             AnyOverlap,
		CharacterGranularity: true,
		Letters:              textmap.Static{0: letters},
	})
	// Covers only the first three characters.
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 22, 20)})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Content)
	if strings.Contains(out, "SECRET") {
		t.Errorf("full run survived: %q", out)
	}
	if !strings.Contains(out, "(RET)") {
		t.Errorf("kept tail missing: %q", out)
	}
	// The synthesized tail is positioned explicitly.
	if !strings.Contains(out, "1 0 0 1 118 700 Tm") {
		t.Errorf("tail not repositioned: %q", out)
	}
	if res.Report.RefinedOperations != 1 {
		t.Errorf("refined = %d", res.Report.RefinedOperations)
	}
}

func TestRefinedSpanKeepsLaterRunsInPlace(t *testing.T) {
	// A refined span is positioned with an explicit Tm, which also
	// replaces the line matrix; later relative positioning in the same
	// block must still resolve from the original origin.
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj 0 -20 Td (after) Tj ET")
	letters := lettersFor("SECRET", 100, 700, 6, 12, 0, 0)
	letters = append(letters, lettersFor("after", 100, 680, 6, 12, 0, 0)...)
	r := New(Options{
		Strategy:             AnyOverlap,
		CharacterGranularity: true,
		Letters:              textmap.Static{0: letters},
	})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 22, 20)})
	if err != nil {
		t.Fatal(err)
	}
	ops, err := contentstream.Parse(res.Content, contentstream.Config{})
	if err != nil {
		t.Fatalf("rebuilt stream does not parse: %v", err)
	}
	var after *contentstream.Operation
	for i := range ops {
		if ops[i].Text != nil && string(ops[i].Text.Raw) == "after" {
			after = &ops[i]
		}
	}
	if after == nil {
		t.Fatalf("uncovered run lost: %q", res.Content)
	}
	if math.Abs(after.BBox.LLX-100) > 1e-6 || math.Abs(after.BBox.LLY-680) > 1e-6 {
		t.Errorf("uncovered run displaced to (%v, %v), want (100, 680)",
			after.BBox.LLX, after.BBox.LLY)
	}
}

func TestRedactEmitsMetrics(t *testing.T) {
	log := observability.NewCaptureLogger()
	page := testPage("BT /F1 12 Tf 100 700 Td (SECRET) Tj ET")
	r := New(Options{Strategy: AnyOverlap, Logger: log})
	if _, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)}); err != nil {
		t.Fatal(err)
	}
	var fields map[string]bool
	for _, e := range log.Entries() {
		if e.Level == "debug" && e.Msg == "redaction metrics" {
			fields = make(map[string]bool)
			for _, f := range e.Fields {
				fields[f.Key()] = true
			}
		}
	}
	if fields == nil {
		t.Fatal("no metrics record emitted")
	}
	for _, k := range []string{
		observability.MetricParseTime,
		observability.MetricFilterTime,
		observability.MetricBuildTime,
		observability.MetricOperationCount,
		observability.MetricRemovedCount,
		observability.MetricRefinedCount,
		observability.MetricUnsupportedOps,
	} {
		if !fields[k] {
			t.Errorf("metric %q missing", k)
		}
	}
}

func TestRedactCharacterGranularityNeedsLetters(t *testing.T) {
	r := New(Options{CharacterGranularity: true})
	_, err := r.RedactRegions(context.Background(), testPage("BT ET"), []coords.Rect{coords.XYWH(0, 0, 10, 10)})
	if err == nil {
		t.Fatal("expected an error without a letter source")
	}
}

func TestRedactUnsupportedSpanReported(t *testing.T) {
	page := testPage("q BI /W 1 /H 1 ID \x00 EI Q BT /F1 12 Tf 100 700 Td (SECRET) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(0, 0, 612, 792)})
	if err != nil {
		t.Fatal(err)
	}
	if res.Report.UnsupportedSpans != 1 {
		t.Errorf("unsupported spans = %d", res.Report.UnsupportedSpans)
	}
	// The inline image survives verbatim even under a full-page region.
	if !strings.Contains(string(res.Content), "BI /W 1 /H 1 ID") {
		t.Errorf("inline image lost: %q", res.Content)
	}
}

func TestRedactPages(t *testing.T) {
	p0 := testPage("BT /F1 12 Tf 100 700 Td (zero) Tj ET")
	p1 := testPage("BT /F1 12 Tf 100 700 Td (one) Tj ET")
	p1.Index = 1
	p2 := testPage("BT ET")
	p2.Index = 2

	r := New(Options{Strategy: AnyOverlap})
	results, err := r.RedactPages(context.Background(), []*document.Page{p0, p1, p2}, map[int][]coords.Rect{
		0: {coords.XYWH(95, 695, 60, 20)},
		1: {coords.XYWH(400, 400, 10, 10)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results for %d pages", len(results))
	}
	if results[0].RemovedCount != 1 || results[1].RemovedCount != 0 {
		t.Errorf("removed = %d, %d", results[0].RemovedCount, results[1].RemovedCount)
	}
	if _, ok := results[2]; ok {
		t.Error("page without regions must be skipped")
	}
}

func TestRedactFontReinjectedWhenTfRemoved(t *testing.T) {
	// Tf inside the block, then a covered run, then an uncovered run: the
	// covered run's removal must not leave the survivor without a font.
	page := testPage("BT 100 700 Td /F1 12 Tf (SECRET) Tj 0 -200 Td (keep) Tj ET")
	r := New(Options{Strategy: AnyOverlap})
	res, err := r.RedactRegions(context.Background(), page, []coords.Rect{coords.XYWH(95, 695, 60, 20)})
	if err != nil {
		t.Fatal(err)
	}
	out := string(res.Content)
	if !strings.Contains(out, "/F1 12 Tf") {
		t.Errorf("font selection lost: %q", out)
	}
	if !strings.Contains(out, "(keep)") {
		t.Errorf("survivor lost: %q", out)
	}
}
