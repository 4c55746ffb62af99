package findbugs

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarang1991/findbugs/internal/analysis"
	"github.com/sarang1991/findbugs/internal/annotation"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/detect"
	"github.com/sarang1991/findbugs/pkg/report"
	"github.com/sarang1991/findbugs/pkg/suppress"

	// Registers the return value detector.
	_ "github.com/sarang1991/findbugs/pkg/detect/returncheck"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	// Detectors names the detectors to run; empty runs all of them.
	Detectors []string

	Annotations annotation.Options

	// Exclude lists suppression rules applied on top of annotations.
	Exclude []suppress.Rule

	// MinPriority drops findings with a lower priority.
	MinPriority int
}

// Stats summarizes a run.
type Stats struct {
	Classes    int           `json:"classes"`
	Methods    int           `json:"methods"`
	Scanned    int           `json:"scanned"`
	Findings   int           `json:"findings"`
	Suppressed int           `json:"suppressed"`
	Filtered   int           `json:"filtered"`
	Duration   time.Duration `json:"duration"`
}

// Result is the outcome of a run. Findings are sorted and include
// suppressed ones, marked as such.
type Result struct {
	Findings []report.Finding `json:"findings"`
	Stats    Stats            `json:"stats"`
}

// Reported returns the findings that are not suppressed.
func (r *Result) Reported() []report.Finding {
	var out []report.Finding
	for _, f := range r.Findings {
		if !f.Suppressed {
			out = append(out, f)
		}
	}
	return out
}

// Analyzer orchestrates the two analysis phases: building the run context
// from the whole classpath, then running detectors over application classes.
type Analyzer struct {
	suppressions *suppress.Checker
	opts         AnalyzerOptions
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	return &Analyzer{
		suppressions: suppress.NewChecker(),
		opts:         opts,
	}
}

// Analyze runs the detectors over app. aux classes only complete the
// hierarchy and annotation lookups.
func (a *Analyzer) Analyze(ctx context.Context, app, aux []*classfile.Class) (*Result, error) {
	start := time.Now()
	if len(app) == 0 {
		return nil, fmt.Errorf("no classes provided")
	}

	detectors, err := detect.New(a.opts.Detectors...)
	if err != nil {
		return nil, fmt.Errorf("creating detectors: %w", err)
	}

	// Step 1: Load suppressions from application classes and rules.
	a.suppressions.Clear()
	if err := a.suppressions.Load(app, a.opts.Exclude); err != nil {
		return nil, fmt.Errorf("failed to load suppressions: %w", err)
	}

	// Step 2: Build the immutable run context.
	classpath := make([]*classfile.Class, 0, len(app)+len(aux))
	classpath = append(classpath, app...)
	classpath = append(classpath, aux...)
	actx := analysis.NewContext(classpath, analysis.Options{Annotations: a.opts.Annotations})
	defer actx.Close()

	// Step 3: Run detectors, one class per task.
	findings, stats, err := a.detect(ctx, actx, detectors, app)
	if err != nil {
		return nil, err
	}

	// Step 4: Mark suppressed findings and apply the priority threshold.
	result := &Result{Stats: stats}
	for _, f := range findings {
		if f.Priority < a.opts.MinPriority {
			result.Stats.Filtered++
			continue
		}
		if f.InstanceHash, err = report.InstanceHash(f); err != nil {
			return nil, fmt.Errorf("hashing finding: %w", err)
		}
		if f.Suppressed, f.SuppressReason = a.suppressions.IsSuppressed(f); f.Suppressed {
			result.Stats.Suppressed++
		} else {
			result.Stats.Findings++
		}
		result.Findings = append(result.Findings, f)
	}
	report.Sort(result.Findings)
	result.Stats.Duration = time.Since(start)

	slog.Info("analysis completed",
		"classes", result.Stats.Classes,
		"scanned", result.Stats.Scanned,
		"findings", result.Stats.Findings,
		"suppressed", result.Stats.Suppressed,
		"dur", result.Stats.Duration)
	return result, nil
}

func (a *Analyzer) detect(ctx context.Context, actx *analysis.Context, detectors []detect.Detector, classes []*classfile.Class) ([]report.Finding, Stats, error) {
	// Each goroutine writes only its own index.
	results := make([][]report.Finding, len(classes))
	var scanned, methods int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for idx, class := range classes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var sink report.Collector
			for _, d := range detectors {
				n := d.VisitClass(actx, class, &sink)
				atomic.AddInt64(&scanned, int64(n))
			}
			atomic.AddInt64(&methods, int64(len(class.Methods)))
			results[idx] = sink.Findings()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("running detectors: %w", err)
	}

	var findings []report.Finding
	for _, r := range results {
		findings = append(findings, r...)
	}
	return findings, Stats{
		Classes: len(classes),
		Methods: int(methods),
		Scanned: int(scanned),
	}, nil
}
