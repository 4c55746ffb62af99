package harness

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/findbugs"
	"github.com/sarang1991/findbugs/pkg/report"
)

// TestCase represents a single test scenario.
type TestCase struct {
	// Name is the archive path relative to the testdata root, without
	// extension.
	Name        string `yaml:"-"`
	Description string `yaml:"-"`

	// App holds the analyzed classes, Aux the classes only used for
	// resolution. Aux classes are packaged in a jar.
	App Fixture `yaml:"-"`
	Aux Fixture `yaml:"-"`

	// Configurations defines multiple analyzer configurations to test.
	Configurations []RunConfiguration `yaml:"configurations"`
}

// TestHarness manages test execution.
type TestHarness struct{}

// NewHarness creates a new test harness.
func NewHarness() *TestHarness {
	return &TestHarness{}
}

// Run executes a test case with all its configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.Configurations, "test case has no configurations")

	app, aux := h.load(t, tc)

	var results []ConfigurationResult
	var allSuccess = true

	for _, cfg := range tc.Configurations {
		cfgResult := h.runConfiguration(t, cfg, app, aux)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n  ")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// load compiles the fixtures to disk and reads them back through the
// classpath loader, so every case also exercises directory and jar loading.
func (h *TestHarness) load(t *testing.T, tc *TestCase) (app, aux []*classfile.Class) {
	t.Helper()
	dir := t.TempDir()
	appDir := filepath.Join(dir, "classes")
	WriteClassDir(t, appDir, tc.App)

	var err error
	app, err = findbugs.LoadClasses(t.Context(), findbugs.LoaderOptions{Paths: []string{appDir}})
	require.NoError(t, err)
	require.Len(t, app, len(tc.App.Classes), "loaded application classes")

	if len(tc.Aux.Classes) > 0 {
		jar := filepath.Join(dir, "aux.jar")
		WriteJar(t, jar, tc.Aux)
		aux, err = findbugs.LoadClasses(t.Context(), findbugs.LoaderOptions{Paths: []string{jar}})
		require.NoError(t, err)
		require.Len(t, aux, len(tc.Aux.Classes), "loaded aux classes")
	}
	return app, aux
}

// runConfiguration executes analysis for a single configuration.
func (h *TestHarness) runConfiguration(t *testing.T, cfg RunConfiguration, app, aux []*classfile.Class) *ConfigurationResult {
	t.Helper()
	result, err := findbugs.NewAnalyzer(cfg.Config.AnalyzerOptions()).Analyze(t.Context(), app, aux)
	if err != nil {
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				return &ConfigurationResult{
					Configuration: cfg,
					Success:       true,
					Message:       fmt.Sprintf("Got expected error: %v", err),
				}
			}
		}
		require.NoError(t, err)
	}
	if len(cfg.ExpectedErrors) > 0 {
		return &ConfigurationResult{
			Configuration: cfg,
			Result:        result,
			Message:       fmt.Sprintf("Expected errors %q, got none", cfg.ExpectedErrors),
		}
	}

	cfgResult := validateResults(cfg, result)

	// Classes may carry their own expectations.
	if failures := findbugs.Verify(findbugs.Expectations(app), result.Findings); len(failures) > 0 {
		cfgResult.Success = false
		cfgResult.Message += fmt.Sprintf(", %d annotated expectations failed", len(failures))
		cfgResult.Details = append(cfgResult.Details, failures...)
	}
	return cfgResult
}

// ConfigurationResult represents the result of running a single configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration RunConfiguration

	// Result is the raw result from the analyzer.
	Result *findbugs.Result

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures for this configuration.
	Details []string
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool

	// Message provides a summary of the result.
	Message string
}

func (e ExpectedFinding) key() string {
	return e.Class + "." + e.Method + " -> " + e.Called
}

func (e ExpectedFinding) String() string {
	s := e.key()
	if e.Pattern != "" {
		s = e.Pattern + " " + s
	}
	return s
}

func actualFinding(f report.Finding) ExpectedFinding {
	a := ExpectedFinding{
		Pattern:  f.Pattern,
		Class:    f.Class,
		Priority: f.Priority,
		Line:     f.Line,
	}
	if f.Method != nil {
		a.Method = f.Method.Name + f.Method.Signature
	}
	if f.Called != nil {
		a.Called = f.Called.Owner + "." + f.Called.Name + f.Called.Signature
	}
	return a
}

func validateResults(cfg RunConfiguration, result *findbugs.Result) *ConfigurationResult {
	cfgResult := &ConfigurationResult{Configuration: cfg, Result: result, Success: true}

	var reported, suppressed []ExpectedFinding
	for _, f := range result.Findings {
		if f.Suppressed {
			suppressed = append(suppressed, actualFinding(f))
		} else {
			reported = append(reported, actualFinding(f))
		}
	}

	missing, unexpected, mismatched := compare(cfg.ExpectedFindings, reported)
	sMissing, sUnexpected, sMismatched := compare(cfg.ExpectedSuppressed, suppressed)

	for _, m := range missing {
		cfgResult.Details = append(cfgResult.Details, "Should have been reported: "+m)
	}
	for _, u := range unexpected {
		cfgResult.Details = append(cfgResult.Details, "Should not have been reported: "+u)
	}
	for _, m := range sMissing {
		cfgResult.Details = append(cfgResult.Details, "Should have been suppressed: "+m)
	}
	for _, u := range sUnexpected {
		cfgResult.Details = append(cfgResult.Details, "Unexpectedly suppressed: "+u)
	}
	cfgResult.Details = append(cfgResult.Details, mismatched...)
	cfgResult.Details = append(cfgResult.Details, sMismatched...)

	if len(cfgResult.Details) > 0 {
		cfgResult.Success = false
		cfgResult.Message = fmt.Sprintf("Test failed: %d missing, %d unexpected",
			len(missing)+len(sMissing), len(unexpected)+len(sUnexpected))
	} else {
		cfgResult.Message = fmt.Sprintf("All %d expected findings found", len(cfg.ExpectedFindings))
	}
	return cfgResult
}

// compare matches findings by key; duplicates are compared as multisets.
func compare(expected, actual []ExpectedFinding) (missing, unexpected, mismatched []string) {
	remaining := map[string][]ExpectedFinding{}
	for _, a := range actual {
		remaining[a.key()] = append(remaining[a.key()], a)
	}
	for _, exp := range expected {
		got := remaining[exp.key()]
		if len(got) == 0 {
			missing = append(missing, exp.String())
			continue
		}
		act := got[0]
		remaining[exp.key()] = got[1:]
		if exp.Pattern != "" && exp.Pattern != act.Pattern {
			mismatched = append(mismatched, fmt.Sprintf("Pattern mismatch for %s: expected %s, got %s", exp.key(), exp.Pattern, act.Pattern))
		}
		if exp.Priority != 0 && exp.Priority != act.Priority {
			mismatched = append(mismatched, fmt.Sprintf("Priority mismatch for %s: expected %d, got %d", exp.key(), exp.Priority, act.Priority))
		}
		if exp.Line != 0 && exp.Line != act.Line {
			mismatched = append(mismatched, fmt.Sprintf("Line mismatch for %s: expected %d, got %d", exp.key(), exp.Line, act.Line))
		}
	}
	for _, left := range remaining {
		for _, a := range left {
			unexpected = append(unexpected, a.String())
		}
	}

	// Sort for consistent output.
	slices.Sort(missing)
	slices.Sort(unexpected)
	return missing, unexpected, mismatched
}
