// Package harness provides test harness infrastructure for validating the
// analyzer against archived class fixtures.
package harness

import (
	"github.com/sarang1991/findbugs/pkg/classfile/classfiletest"
	"github.com/sarang1991/findbugs/pkg/findbugs"
)

// Fixture is the content of an app.yaml or aux.yaml archive member.
type Fixture struct {
	Classes []classfiletest.Class `yaml:"classes"`
}

// RunConfiguration represents a single analyzer configuration to test.
type RunConfiguration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// Config is passed to the analyzer as if read from a config file.
	Config findbugs.Config `yaml:"config,omitempty"`

	// ExpectedFindings lists the unsuppressed findings expected for this
	// configuration.
	ExpectedFindings []ExpectedFinding `yaml:"expected_findings"`

	// ExpectedSuppressed lists findings expected to be reported as suppressed.
	ExpectedSuppressed []ExpectedFinding `yaml:"expected_suppressed,omitempty"`

	// ExpectedErrors lists any expected error messages for this configuration.
	ExpectedErrors []string `yaml:"expected_errors,omitempty"`
}

// ExpectedFinding identifies a finding by location and callee. Zero
// Priority and Line are not compared.
type ExpectedFinding struct {
	Pattern  string `yaml:"pattern,omitempty"`
	Class    string `yaml:"class"`
	Method   string `yaml:"method"` // name + descriptor
	Called   string `yaml:"called"` // owner.name+descriptor
	Priority int    `yaml:"priority,omitempty"`
	Line     int    `yaml:"line,omitempty"`
}
