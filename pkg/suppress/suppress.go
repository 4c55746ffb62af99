// Package suppress implements suppression of findings through
// SuppressFBWarnings annotations and configured exclusion rules.
package suppress

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/report"
)

// Checker decides whether findings are suppressed.
type Checker struct {
	// suppressions maps a class name to the annotations found on it and
	// its methods
	suppressions map[string][]Suppression

	rules []compiledRule
}

// Suppression represents a parsed suppression.
type Suppression struct {
	Class string

	// Method is name+descriptor, empty when the whole class is covered.
	Method string

	// Patterns are bug pattern prefixes; empty matches every pattern.
	Patterns []string
	Reason   string
	Type     SuppressionType
}

// SuppressionType represents the source of a suppression.
type SuppressionType int

const (
	// SuppressionAnnotation represents a @SuppressFBWarnings annotation.
	SuppressionAnnotation SuppressionType = iota

	// SuppressionRule represents an exclusion rule from the configuration.
	SuppressionRule
)

// Annotation types treated as suppressions.
var suppressAnnotations = []string{
	"edu.umd.cs.findbugs.annotations.SuppressFBWarnings",
	"edu.umd.cs.findbugs.annotations.SuppressWarnings",
}

// Rule excludes findings from the configuration file. Class, Method and
// Pattern are regular expressions that must match the whole class name,
// method name and bug pattern; an empty expression matches everything.
type Rule struct {
	Class   string `yaml:"class,omitempty"`
	Method  string `yaml:"method,omitempty"`
	Pattern string `yaml:"pattern,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
}

type compiledRule struct {
	class, method, pattern *regexp.Regexp
	reason                 string
}

// NewChecker creates a new suppression checker.
func NewChecker() *Checker {
	return &Checker{
		suppressions: make(map[string][]Suppression),
	}
}

// Load collects suppression annotations from classes and compiles rules.
func (sc *Checker) Load(classes []*classfile.Class, rules []Rule) error {
	for i, r := range rules {
		cr := compiledRule{reason: r.Reason}
		var err error
		if cr.class, err = compile(r.Class); err != nil {
			return fmt.Errorf("rule %d: class: %w", i, err)
		}
		if cr.method, err = compile(r.Method); err != nil {
			return fmt.Errorf("rule %d: method: %w", i, err)
		}
		if cr.pattern, err = compile(r.Pattern); err != nil {
			return fmt.Errorf("rule %d: pattern: %w", i, err)
		}
		sc.rules = append(sc.rules, cr)
	}

	for _, c := range classes {
		if s := parseAnnotations(c.Annotations); s != nil {
			s.Class = c.Name
			sc.suppressions[c.Name] = append(sc.suppressions[c.Name], *s)
		}
		for _, m := range c.Methods {
			if s := parseAnnotations(m.Annotations); s != nil {
				s.Class = c.Name
				s.Method = m.Name + m.Descriptor
				sc.suppressions[c.Name] = append(sc.suppressions[c.Name], *s)
			}
		}
	}
	return nil
}

func compile(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(`^(?:` + expr + `)$`)
}

// parseAnnotations returns the suppression expressed by anns, if any.
func parseAnnotations(anns []classfile.Annotation) *Suppression {
	for _, name := range suppressAnnotations {
		ann, ok := classfile.FindAnnotation(anns, name)
		if !ok {
			continue
		}
		s := &Suppression{Type: SuppressionAnnotation}
		if v, ok := ann.Element("value"); ok {
			for _, elem := range v.Array {
				s.Patterns = append(s.Patterns, elem.Const)
			}
			if v.Tag == 's' {
				s.Patterns = append(s.Patterns, v.Const)
			}
		}
		if j, ok := ann.Element("justification"); ok {
			s.Reason = strings.TrimSpace(j.Const)
		}
		return s
	}
	return nil
}

func (s *Suppression) matches(f report.Finding) bool {
	if s.Method != "" && (f.Method == nil || f.Method.Name+f.Method.Signature != s.Method) {
		return false
	}
	if len(s.Patterns) == 0 {
		return true
	}
	for _, p := range s.Patterns {
		if strings.HasPrefix(f.Pattern, p) {
			return true
		}
	}
	return false
}

func (r *compiledRule) matches(f report.Finding) bool {
	method := ""
	if f.Method != nil {
		method = f.Method.Name
	}
	return (r.class == nil || r.class.MatchString(f.Class)) &&
		(r.method == nil || r.method.MatchString(method)) &&
		(r.pattern == nil || r.pattern.MatchString(f.Pattern))
}

// IsSuppressed checks whether f is covered by an annotation on its method
// or class, or by a rule.
func (sc *Checker) IsSuppressed(f report.Finding) (bool, string) {
	for _, s := range sc.suppressions[f.Class] {
		if s.matches(f) {
			return true, reasonOr(s.Reason)
		}
	}
	for _, r := range sc.rules {
		if r.matches(f) {
			return true, reasonOr(r.reason)
		}
	}
	return false, ""
}

func reasonOr(reason string) string {
	if reason == "" {
		return "suppressed"
	}
	return reason
}

// Clear clears all suppressions.
func (sc *Checker) Clear() {
	sc.suppressions = make(map[string][]Suppression)
	sc.rules = nil
}

func (sc *Checker) getAllSuppressions() map[string][]Suppression {
	result := make(map[string][]Suppression)
	maps.Copy(result, sc.suppressions)
	return result
}
