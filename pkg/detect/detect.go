// Package detect defines the interface bug detectors implement and the
// registry the analyzer draws them from.
package detect

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sarang1991/findbugs/internal/analysis"
	"github.com/sarang1991/findbugs/pkg/classfile"
	"github.com/sarang1991/findbugs/pkg/report"
)

// Detector inspects one class at a time. VisitClass may be called
// concurrently for different classes; implementations keep per-scan state
// on the stack.
type Detector interface {
	// Name identifies the detector in configuration and logs.
	Name() string

	// Patterns lists the bug pattern codes the detector reports.
	Patterns() []string

	// VisitClass reports the bugs found in class to sink and returns the
	// number of method bodies it scanned.
	VisitClass(actx *analysis.Context, class *classfile.Class, sink report.Sink) int
}

// Factory creates a detector for one run.
type Factory func() Detector

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a detector available by name. It panics when the name is
// taken.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("detect: detector %q registered twice", name))
	}
	factories[name] = f
}

// Names returns the registered detector names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New instantiates the named detectors, or every registered detector when
// names is empty.
func New(names ...string) ([]Detector, error) {
	if len(names) == 0 {
		names = Names()
	}
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		f, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown detector %q", name)
		}
		out = append(out, f())
	}
	return out, nil
}
