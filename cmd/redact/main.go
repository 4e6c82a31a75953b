// Command redact applies region redactions to decoded content-stream
// files according to a YAML job description.
//
// The job file marks regions as pending; nothing is touched until the
// apply step runs, at which point each page goes through one structural
// parse → filter → rebuild pass and its output is written next to the
// input. A Markdown (optionally HTML) report is produced per page.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
	"github.com/wudi/redactkit/filters"
	"github.com/wudi/redactkit/redact"
	"github.com/wudi/redactkit/report"
	"github.com/wudi/redactkit/scripting"
)

type jobFile struct {
	Strategy    string    `yaml:"strategy"`    // center-point | any-overlap | fully-contained
	Granularity string    `yaml:"granularity"` // operation (default) | character
	Markers     bool      `yaml:"markers"`
	Policy      string    `yaml:"policy"` // optional path to a JS policy
	Pages       []jobPage `yaml:"pages"`
}

type jobPage struct {
	Page    int    `yaml:"page"`
	Content string `yaml:"content"` // path to content-stream bytes
	// Filters lists stream encodings to strip before parsing, outermost
	// first (e.g. [FlateDecode]). Empty means the bytes are already
	// decoded.
	Filters []string           `yaml:"filters"`
	Width   float64            `yaml:"width"`
	Height  float64            `yaml:"height"`
	Fonts   map[string]jobFont `yaml:"fonts"`
	Regions []jobRegion        `yaml:"regions"`
	// TopLeft marks the regions as given in a top-left frame (UI
	// coordinates); they are converted at this boundary.
	TopLeft bool `yaml:"top_left"`
}

type jobFont struct {
	BaseFont string      `yaml:"base_font"`
	Widths   map[int]int `yaml:"widths"`
}

type jobRegion struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// pendingRedaction is a pure annotation: no mutation has happened yet.
type pendingRedaction struct {
	Page   int
	Region coords.Rect
}

// appliedRedaction records a committed removal.
type appliedRedaction struct {
	pendingRedaction
	Matched int
}

func main() {
	jobPath := flag.String("job", "", "YAML job file (required)")
	outDir := flag.String("out", "", "Output directory (defaults next to each input)")
	htmlOut := flag.Bool("html", false, "Also render HTML reports")
	flag.Parse()
	if *jobPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), *jobPath, *outDir, *htmlOut); err != nil {
		fmt.Fprintf(os.Stderr, "redact: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, jobPath, outDir string, htmlOut bool) error {
	raw, err := os.ReadFile(jobPath)
	if err != nil {
		return err
	}
	var job jobFile
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("job file: %w", err)
	}
	strategy, err := redact.ParseStrategy(job.Strategy)
	if err != nil {
		return err
	}

	opts := redact.Options{
		Strategy:    strategy,
		DrawMarkers: job.Markers,
	}
	if job.Granularity == "character" {
		return fmt.Errorf("character granularity needs a letter source; not available from job files yet")
	}
	if job.Policy != "" {
		script, err := os.ReadFile(job.Policy)
		if err != nil {
			return fmt.Errorf("policy: %w", err)
		}
		policy, err := scripting.NewPolicy(string(script), nil)
		if err != nil {
			return err
		}
		opts.Policy = policy.Func(ctx)
	}
	redactor := redact.New(opts)

	// Mark everything pending first; apply is a distinct step.
	var pending []pendingRedaction
	for _, jp := range job.Pages {
		for _, reg := range jp.Regions {
			r := coords.XYWH(reg.X, reg.Y, reg.W, reg.H)
			if jp.TopLeft {
				r = coords.ScreenToPage(jp.Height, r)
			}
			pending = append(pending, pendingRedaction{Page: jp.Page, Region: r})
		}
	}
	byPage := make(map[int][]coords.Rect)
	for _, p := range pending {
		byPage[p.Page] = append(byPage[p.Page], p.Region)
	}

	var mu sync.Mutex
	var applied []appliedRedaction

	g, ctx := errgroup.WithContext(ctx)
	for _, jp := range job.Pages {
		regions := byPage[jp.Page]
		if len(regions) == 0 {
			continue
		}
		g.Go(func() error {
			content, err := os.ReadFile(jp.Content)
			if err != nil {
				return err
			}
			if len(jp.Filters) > 0 {
				content, err = filters.Default(filters.Limits{MaxDecodedSize: 64 << 20}).
					Decode(ctx, content, jp.Filters)
				if err != nil {
					return fmt.Errorf("page %d: %w", jp.Page, err)
				}
			}
			page := &document.Page{
				Index:     jp.Page,
				Width:     jp.Width,
				Height:    jp.Height,
				Resources: pageResources(jp.Fonts),
				Content:   content,
			}
			res, err := redactor.Apply(ctx, page, regions)
			if err != nil {
				return fmt.Errorf("page %d: %w", jp.Page, err)
			}

			mu.Lock()
			for i, r := range regions {
				applied = append(applied, appliedRedaction{
					pendingRedaction: pendingRedaction{Page: jp.Page, Region: r},
					Matched:          res.RegionMatches[i],
				})
			}
			mu.Unlock()

			return writeOutputs(jp.Content, outDir, htmlOut, page.Content, res)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, a := range applied {
		fmt.Printf("applied page=%d region=(%.1f,%.1f,%.1f,%.1f) matched=%d\n",
			a.Page, a.Region.LLX, a.Region.LLY, a.Region.URX, a.Region.URY, a.Matched)
	}
	return nil
}

func pageResources(fonts map[string]jobFont) *document.Resources {
	if len(fonts) == 0 {
		return nil
	}
	res := &document.Resources{Fonts: make(map[string]*document.Font, len(fonts))}
	for name, jf := range fonts {
		res.Fonts[name] = &document.Font{BaseFont: jf.BaseFont, Widths: jf.Widths}
	}
	return res
}

func writeOutputs(inputPath, outDir string, htmlOut bool, content []byte, res *redact.Result) error {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	if err := os.WriteFile(filepath.Join(dir, base+".redacted"+filepath.Ext(inputPath)), content, 0o644); err != nil {
		return err
	}
	md := res.Report.Markdown()
	if err := os.WriteFile(filepath.Join(dir, base+".report.md"), md, 0o644); err != nil {
		return err
	}
	if htmlOut {
		html, err := report.RenderHTML(md)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, base+".report.html"), html, 0o644); err != nil {
			return err
		}
	}
	for name, img := range res.Images {
		if err := os.WriteFile(filepath.Join(dir, base+"."+name+".png"), img, 0o644); err != nil {
			return err
		}
	}
	return nil
}
