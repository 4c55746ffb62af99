// Package main implements the CLI driver for the findbugs analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarang1991/findbugs/pkg/detect"
	"github.com/sarang1991/findbugs/pkg/findbugs"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Classpath      []string // classes, jars and directories to analyze
	AuxClasspath   []string // classes consulted only for hierarchy and annotations
	ConfigFile     string   // optional yaml configuration
	Verbose        bool     // enables debug logging and statistics
	JSON           bool     // enables JSON output format
	Profile        bool     // enables CPU and memory profiling
	CheckAll       bool     // treat every non-void method as check-return-value
	MinPriority    int      // drop findings below this priority
	ShowSuppressed bool     // also print suppressed findings
	Detectors      []string // detectors to run; empty runs all
}

const (
	exitFindings = 1
	exitError    = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "findbugs [classpath...]",
		Short: "Find ignored return values in compiled JVM classes",
		Long: `findbugs scans JVM bytecode for calls whose return value is discarded
although the callee is annotated (directly, through an overridden ancestor, or
via the built in catalog) as having a result that must be checked.

Arguments are directories, .class files and .jar archives. Local paths and
afs URLs are accepted.`,
		Example: `  findbugs build/classes                      # Analyze a class directory
  findbugs app.jar --aux-classpath lib/        # Resolve library annotations
  findbugs -v --json app.jar > report.json     # JSON output to file
  findbugs --check-all build/classes           # Every non-void result must be used`,
		Args:               cobra.MinimumNArgs(1),
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("findbugs version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	flags.BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	flags.StringSliceVar(&cfg.AuxClasspath, "aux-classpath", nil, "Classes used only to resolve the hierarchy and annotations")
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path or URL of a yaml configuration file")
	flags.BoolVar(&cfg.CheckAll, "check-all", false, "Report every ignored non-void return value")
	flags.IntVar(&cfg.MinPriority, "min-priority", 0, "Only report findings with at least this priority (1 low, 2 medium, 3 high)")
	flags.BoolVar(&cfg.ShowSuppressed, "show-suppressed", false, "Also print suppressed findings")
	flags.StringSliceVar(&cfg.Detectors, "detectors", nil, "Detectors to run (default all: "+strings.Join(detect.Names(), ", ")+")")
	flags.BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg.Classpath = args
	slog.Info("starting analysis", "classpath", cfg.Classpath, "aux", cfg.AuxClasspath)

	result, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(os.Stdout, result, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}

	if len(result.Reported()) > 0 {
		return errWithCode(nil, exitFindings)
	}
	return nil
}

func runAnalysis(ctx context.Context, cfg *Config) (*findbugs.Result, error) {
	opts, err := analyzerOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app, err := findbugs.LoadClasses(ctx, findbugs.LoaderOptions{Paths: cfg.Classpath})
	if err != nil {
		return nil, fmt.Errorf("loading classes: %w", err)
	}
	auxClasses, err := findbugs.LoadClasses(ctx, findbugs.LoaderOptions{Paths: cfg.AuxClasspath})
	if err != nil {
		return nil, fmt.Errorf("loading aux classpath: %w", err)
	}
	slog.Info("loaded classes", "app", len(app), "aux", len(auxClasses))

	return findbugs.NewAnalyzer(opts).Analyze(ctx, app, auxClasses)
}

// analyzerOptions merges the optional config file with command-line flags.
// Flags win when set.
func analyzerOptions(ctx context.Context, cfg *Config) (findbugs.AnalyzerOptions, error) {
	fileCfg := &findbugs.Config{}
	if cfg.ConfigFile != "" {
		var err error
		if fileCfg, err = findbugs.LoadConfig(ctx, cfg.ConfigFile); err != nil {
			return findbugs.AnalyzerOptions{}, err
		}
	}
	if cfg.CheckAll {
		fileCfg.CheckAll = true
	}
	if cfg.MinPriority > 0 {
		fileCfg.MinPriority = cfg.MinPriority
	}
	if len(cfg.Detectors) > 0 {
		fileCfg.Detectors = cfg.Detectors
	}
	return fileCfg.AnalyzerOptions(), nil
}

func writeResults(w io.Writer, result *findbugs.Result, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(result)
	} else {
		output = formatTextOutput(result, cfg)
	}

	if err != nil {
		return err
	}

	_, err = io.WriteString(w, output)
	return err
}

func formatJSONOutput(result *findbugs.Result) (string, error) {
	findings := make([]jFinding, 0, len(result.Findings))
	for _, f := range result.Findings {
		jf := jFinding{
			Pattern:        f.Pattern,
			Priority:       f.Priority,
			Class:          f.Class,
			PC:             f.PC,
			Line:           f.Line,
			InstanceHash:   f.InstanceHash,
			Suppressed:     f.Suppressed,
			SuppressReason: f.SuppressReason,
		}
		if f.Method != nil {
			jf.Method = f.Method.Name + f.Method.Signature
		}
		if f.Called != nil {
			jf.Called = f.Called.String()
		}
		findings = append(findings, jf)
	}

	data, err := json.MarshalIndent(jOutput{
		Findings:  findings,
		Stats:     result.Stats,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data) + "\n", nil
}

func formatTextOutput(result *findbugs.Result, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"classes", result.Stats.Classes,
			"methods", result.Stats.Methods,
			"scanned", result.Stats.Scanned,
			"findings", result.Stats.Findings,
			"suppressed", result.Stats.Suppressed,
			"filtered", result.Stats.Filtered,
			"analysis_duration", result.Stats.Duration.String())
	}

	if result.Stats.Findings == 0 && !cfg.ShowSuppressed {
		slog.Info("no findings")
		return output.String()
	}

	for _, f := range result.Findings {
		if f.Suppressed && !cfg.ShowSuppressed {
			continue
		}
		// Format: class.method:line pattern (priority) calls callee
		location := f.Class
		if f.Method != nil {
			location += "." + f.Method.Name + f.Method.Signature
		}
		if f.Line > 0 {
			location += fmt.Sprintf(":%d", f.Line)
		} else {
			location += fmt.Sprintf("@%d", f.PC)
		}
		output.WriteString(fmt.Sprintf("%s %s (%s)", location, f.Pattern, priorityName(f.Priority)))
		if f.Called != nil {
			output.WriteString(" ignores " + f.Called.String())
		}
		if f.Suppressed {
			output.WriteString(" [suppressed: " + f.SuppressReason + "]")
		}
		if cfg.Verbose && f.InstanceHash != "" {
			output.WriteString(" " + f.InstanceHash)
		}
		output.WriteString("\n")
	}

	return output.String()
}

func priorityName(p int) string {
	switch p {
	case 3:
		return "high"
	case 2:
		return "medium"
	case 1:
		return "low"
	}
	return fmt.Sprintf("priority %d", p)
}

type jOutput struct {
	Findings  []jFinding `json:"findings"`
	Stats     any        `json:"stats"`
	Version   string     `json:"version"`
	Timestamp string     `json:"timestamp"`
}

type jFinding struct {
	Pattern        string `json:"pattern"`
	Priority       int    `json:"priority"`
	Class          string `json:"class"`
	Method         string `json:"method"`
	PC             int    `json:"pc"`
	Line           int    `json:"line"`
	Called         string `json:"called,omitempty"`
	InstanceHash   string `json:"instance_hash"`
	Suppressed     bool   `json:"suppressed"`
	SuppressReason string `json:"suppress_reason,omitempty"`
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
	}

	if !cfg.Profile {
		return nil
	}

	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	cpuProfile = nil
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

func (e codedError) Unwrap() error {
	return e.err
}
