// Package report assembles user-facing removal reports: what each region
// matched, how many operations were removed or refined, and which spans
// the engine could not redact. Reports render to Markdown, HTML, or plain
// text.
package report

import (
	"bytes"
	"fmt"

	"github.com/wudi/redactkit/coords"
)

// RegionResult is the per-region outcome of one redaction pass.
type RegionResult struct {
	Region  coords.Rect
	Matched int
}

// Report describes one page's redaction pass.
type Report struct {
	Page              int
	RemovedOperations int
	RefinedOperations int
	// UnsupportedSpans counts constructs (inline images, form XObjects)
	// the engine preserved verbatim. Content inside them cannot be
	// redacted; callers must surface this to the user.
	UnsupportedSpans int
	RemovedText      []string
	Regions          []RegionResult
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Redaction report: page %d\n\n", r.Page)
	fmt.Fprintf(&buf, "- Operations removed: %d\n", r.RemovedOperations)
	fmt.Fprintf(&buf, "- Operations refined at character granularity: %d\n", r.RefinedOperations)
	if r.UnsupportedSpans > 0 {
		fmt.Fprintf(&buf, "- **Unsupported spans preserved: %d** — content inside these cannot be redacted by this engine\n", r.UnsupportedSpans)
	}
	buf.WriteString("\n## Regions\n\n")
	buf.WriteString("| # | Region (llx, lly, urx, ury) | Matched operations |\n")
	buf.WriteString("|---|---|---|\n")
	for i, rr := range r.Regions {
		fmt.Fprintf(&buf, "| %d | (%.2f, %.2f, %.2f, %.2f) | %d |\n",
			i+1, rr.Region.LLX, rr.Region.LLY, rr.Region.URX, rr.Region.URY, rr.Matched)
	}
	if len(r.RemovedText) > 0 {
		buf.WriteString("\n## Removed text\n\n")
		for _, t := range r.RemovedText {
			fmt.Fprintf(&buf, "- `%s`\n", t)
		}
	}
	return buf.Bytes()
}
