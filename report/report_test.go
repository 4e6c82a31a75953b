package report

import (
	"strings"
	"testing"

	"github.com/wudi/redactkit/coords"
)

func sampleReport() *Report {
	return &Report{
		Page:              3,
		RemovedOperations: 2,
		RefinedOperations: 1,
		UnsupportedSpans:  1,
		RemovedText:       []string{"SECRET"},
		Regions: []RegionResult{
			{Region: coords.XYWH(95, 695, 60, 20), Matched: 2},
			{Region: coords.XYWH(10, 10, 5, 5), Matched: 0},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := string(sampleReport().Markdown())
	for _, want := range []string{
		"# Redaction report: page 3",
		"Operations removed: 2",
		"character granularity: 1",
		"Unsupported spans preserved: 1",
		"| 1 | (95.00, 695.00, 155.00, 715.00) | 2 |",
		"| 2 | (10.00, 10.00, 15.00, 15.00) | 0 |",
		"- `SECRET`",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownOmitsEmptySections(t *testing.T) {
	r := &Report{Page: 0}
	md := string(r.Markdown())
	if strings.Contains(md, "Unsupported spans") {
		t.Error("unsupported section present with zero count")
	}
	if strings.Contains(md, "Removed text") {
		t.Error("removed-text section present with no removals")
	}
}

func TestRenderHTMLTable(t *testing.T) {
	out, err := RenderHTML(sampleReport().Markdown())
	if err != nil {
		t.Fatal(err)
	}
	doc := string(out)
	if !strings.Contains(doc, "<table>") || !strings.Contains(doc, "<h1") {
		t.Errorf("html output:\n%s", doc)
	}
}

func TestPlainText(t *testing.T) {
	out, err := RenderHTML(sampleReport().Markdown())
	if err != nil {
		t.Fatal(err)
	}
	text, err := PlainText(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "<") {
		t.Errorf("markup leaked into plain text:\n%s", text)
	}
	if !strings.Contains(text, "Redaction report: page 3") || !strings.Contains(text, "SECRET") {
		t.Errorf("plain text:\n%s", text)
	}
}
